// Package region maps German postal codes to districts for dashboard filtering.
// It loads a plz/ort/landkreis/bundesland snapshot from the embedded CSV and
// indexes it by full PLZ, by PLZ3 prefix, by Landkreis and by Ort
package region

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
)

//go:embed plz.csv
var embedded []byte

// Row is one postal code entry from the dataset
type Row struct {
	PLZ        string
	Ort        string
	Landkreis  string
	Bundesland string
}

// Dataset is an immutable indexed snapshot of the postal geography
type Dataset struct {
	rows []Row

	byPLZ        map[string]Row
	plz3ToKreis  map[string]string
	kreisToPLZ   map[string][]string // lowercased landkreis -> sorted plz list
	ortToPLZ     map[string][]string // lowercased ort -> sorted plz list
	kreisDisplay map[string]string   // lowercased landkreis -> display name
}

// Load parses and indexes a CSV snapshot with a plz,ort,landkreis,bundesland header
func Load(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("region: read header: %w", err)
	}
	want := []string{"plz", "ort", "landkreis", "bundesland"}
	for i, col := range want {
		if i >= len(header) || !strings.EqualFold(strings.TrimSpace(header[i]), col) {
			return nil, fmt.Errorf("region: unexpected header %v (want %v)", header, want)
		}
	}

	d := &Dataset{
		byPLZ:        make(map[string]Row, 256),
		plz3ToKreis:  make(map[string]string, 128),
		kreisToPLZ:   make(map[string][]string, 64),
		ortToPLZ:     make(map[string][]string, 64),
		kreisDisplay: make(map[string]string, 64),
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("region: read row: %w", err)
		}

		row := Row{
			PLZ:        strings.TrimSpace(rec[0]),
			Ort:        strings.TrimSpace(rec[1]),
			Landkreis:  strings.TrimSpace(rec[2]),
			Bundesland: strings.TrimSpace(rec[3]),
		}
		if len(row.PLZ) != 5 || row.Landkreis == "" {
			continue
		}

		d.rows = append(d.rows, row)
		d.byPLZ[row.PLZ] = row

		// first row for a prefix wins; the source data is prefix-consistent
		p3 := row.PLZ[:3]
		if _, ok := d.plz3ToKreis[p3]; !ok {
			d.plz3ToKreis[p3] = row.Landkreis
		}

		kl := strings.ToLower(row.Landkreis)
		d.kreisToPLZ[kl] = append(d.kreisToPLZ[kl], row.PLZ)
		d.kreisDisplay[kl] = row.Landkreis

		ol := strings.ToLower(row.Ort)
		if ol != "" {
			d.ortToPLZ[ol] = append(d.ortToPLZ[ol], row.PLZ)
		}
	}

	if len(d.rows) == 0 {
		return nil, fmt.Errorf("region: empty dataset")
	}

	for k := range d.kreisToPLZ {
		sort.Strings(d.kreisToPLZ[k])
	}
	for o := range d.ortToPLZ {
		sort.Strings(d.ortToPLZ[o])
	}
	return d, nil
}

// LoadEmbedded returns the dataset compiled into the binary
func LoadEmbedded() (*Dataset, error) {
	return Load(bytes.NewReader(embedded))
}

// PLZ3 returns the three digit prefix of a postal code, or "" when too short
func PLZ3(plz string) string {
	plz = strings.TrimSpace(plz)
	if len(plz) < 3 {
		return ""
	}
	return plz[:3]
}

// Len reports the number of rows in the snapshot
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// LandkreisByPLZ3 resolves a three digit prefix to its district, "" when unknown
func (d *Dataset) LandkreisByPLZ3(plz3 string) string {
	if d == nil {
		return ""
	}
	return d.plz3ToKreis[strings.TrimSpace(plz3)]
}

// LandkreisByPLZ resolves a full postal code to its district via the PLZ3 prefix
func (d *Dataset) LandkreisByPLZ(plz string) string {
	return d.LandkreisByPLZ3(PLZ3(plz))
}

// PLZForLandkreis returns every postal code in the district, case-insensitive.
// Unknown districts return an empty list
func (d *Dataset) PLZForLandkreis(landkreis string) []string {
	if d == nil {
		return nil
	}
	src := d.kreisToPLZ[strings.ToLower(strings.TrimSpace(landkreis))]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// PLZForOrt returns every postal code for the city, case-insensitive.
// Unknown cities return an empty list
func (d *Dataset) PLZForOrt(ort string) []string {
	if d == nil {
		return nil
	}
	src := d.ortToPLZ[strings.ToLower(strings.TrimSpace(ort))]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// OrtByPLZ resolves a full postal code to its city, "" when unknown
func (d *Dataset) OrtByPLZ(plz string) string {
	if d == nil {
		return ""
	}
	return d.byPLZ[strings.TrimSpace(plz)].Ort
}

// BundeslandByPLZ resolves a full postal code to its federal state, "" when unknown
func (d *Dataset) BundeslandByPLZ(plz string) string {
	if d == nil {
		return ""
	}
	return d.byPLZ[strings.TrimSpace(plz)].Bundesland
}

// RegionPLZ expands a user or issuer zip to every postal code of its district.
// This is the filter set dashboards match issuer zips against; a badge counts
// toward the issuer's region regardless of where the learner lives
func (d *Dataset) RegionPLZ(zip string) (landkreis string, plz []string) {
	lk := d.LandkreisByPLZ(zip)
	if lk == "" {
		return "", nil
	}
	return lk, d.PLZForLandkreis(lk)
}

// Landkreise lists every district display name in the snapshot, sorted
func (d *Dataset) Landkreise() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.kreisDisplay))
	for _, name := range d.kreisDisplay {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
