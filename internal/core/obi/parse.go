package obi

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// InputKind discriminates how an assertion was handed to us
type InputKind int

// Input kinds
const (
	KindJSON InputKind = iota
	KindJWS
	KindURL
)

// Input is a detected assertion input ready for verification
type Input struct {
	Kind InputKind
	JSON []byte
	JWS  string
	URL  string
}

// DetectInput classifies raw bytes as assertion JSON, a compact JWS, or a URL
func DetectInput(raw []byte) (Input, error) {
	s := bytes.TrimSpace(raw)
	if len(s) == 0 {
		return Input{}, fmt.Errorf("obi: empty input")
	}

	if s[0] == '{' {
		if !json.Valid(s) {
			return Input{}, fmt.Errorf("obi: invalid assertion json")
		}
		return Input{Kind: KindJSON, JSON: s}, nil
	}

	str := string(s)
	if isHTTPURL(str) {
		return Input{Kind: KindURL, URL: str}, nil
	}
	if isCompactJWS(str) {
		return Input{Kind: KindJWS, JWS: str}, nil
	}
	return Input{}, fmt.Errorf("obi: input is neither json, jws nor url")
}

func isHTTPURL(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

func isCompactJWS(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts[:2] { // signature may be empty for unsecured JWS
		if p == "" {
			return false
		}
		if _, err := base64.RawURLEncoding.DecodeString(p); err != nil {
			return false
		}
	}
	return true
}

// JWSPayload decodes the middle segment of a compact JWS without verifying
func JWSPayload(jws string) ([]byte, error) {
	parts := strings.Split(strings.TrimSpace(jws), ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("obi: malformed jws")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("obi: decode jws payload: %w", err)
	}
	return payload, nil
}

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// bakedKeyword is the text chunk keyword carrying the badge
const bakedKeyword = "openbadges"

// ExtractBaked pulls the openbadges payload out of a baked PNG.
// Both iTXt and tEXt chunks are honored; iTXt may be zlib-compressed
func ExtractBaked(r io.Reader) ([]byte, error) {
	magic := make([]byte, len(pngMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("obi: read png header: %w", err)
	}
	if !bytes.Equal(magic, pngMagic) {
		return nil, fmt.Errorf("obi: not a png image")
	}

	for {
		var head [8]byte
		if _, err := io.ReadFull(r, head[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("obi: no badge data in image")
			}
			return nil, fmt.Errorf("obi: read png chunk: %w", err)
		}
		length := binary.BigEndian.Uint32(head[:4])
		ctype := string(head[4:8])

		if length > 1<<24 {
			return nil, fmt.Errorf("obi: png chunk too large")
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("obi: read png chunk data: %w", err)
		}
		// skip CRC
		if _, err := io.CopyN(io.Discard, r, 4); err != nil {
			return nil, fmt.Errorf("obi: read png chunk crc: %w", err)
		}

		switch ctype {
		case "iTXt":
			if payload, ok, err := parseITXt(data); err != nil {
				return nil, err
			} else if ok {
				return payload, nil
			}
		case "tEXt":
			if payload, ok := parseTEXt(data); ok {
				return payload, nil
			}
		case "IEND":
			return nil, fmt.Errorf("obi: no badge data in image")
		}
	}
}

// parseITXt returns the openbadges payload from an iTXt chunk body
func parseITXt(data []byte) ([]byte, bool, error) {
	kw, rest, ok := bytes.Cut(data, []byte{0})
	if !ok || string(kw) != bakedKeyword {
		return nil, false, nil
	}
	if len(rest) < 2 {
		return nil, false, fmt.Errorf("obi: truncated iTXt chunk")
	}
	compressed := rest[0] == 1
	rest = rest[2:] // compression flag + method

	// language tag and translated keyword, both NUL-terminated
	for i := 0; i < 2; i++ {
		_, tail, ok := bytes.Cut(rest, []byte{0})
		if !ok {
			return nil, false, fmt.Errorf("obi: truncated iTXt chunk")
		}
		rest = tail
	}

	if !compressed {
		return rest, true, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(rest))
	if err != nil {
		return nil, false, fmt.Errorf("obi: iTXt inflate: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, 1<<24))
	if err != nil {
		return nil, false, fmt.Errorf("obi: iTXt inflate: %w", err)
	}
	return out, true, nil
}

// parseTEXt returns the openbadges payload from a tEXt chunk body
func parseTEXt(data []byte) ([]byte, bool) {
	kw, rest, ok := bytes.Cut(data, []byte{0})
	if !ok || string(kw) != bakedKeyword {
		return nil, false
	}
	return rest, true
}

// InputFromPNG extracts and classifies the payload baked into a PNG
func InputFromPNG(r io.Reader) (Input, error) {
	payload, err := ExtractBaked(r)
	if err != nil {
		return Input{}, err
	}
	return DetectInput(payload)
}
