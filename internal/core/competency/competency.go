package competency

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ExtensionName is the badge class extension carrying competency metadata
const ExtensionName = "extensions:CompetencyExtension"

// Competency is one entry of a badge class competency extension
type Competency struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StudyLoad   int    `json:"studyLoad,omitempty"` // minutes
	Category    string `json:"category,omitempty"`
	EscoID      string `json:"escoID,omitempty"`
}

// Area is one competency area derived from extensions
type Area struct {
	NameKey     string `json:"nameKey"`
	DisplayName string `json:"displayName"`
}

// ParseExtension decodes the payload of a competency extension. Issuers store
// either an array of competencies or a bare object, so a lone object is
// wrapped into a one element list
func ParseExtension(raw []byte) ([]Competency, error) {
	var list []Competency
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var one Competency
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("competency: parse extension: %w", err)
	}
	return []Competency{one}, nil
}

// AreasFromExtensions folds extension payloads into the area map keyed by
// AreaKey. Unparseable payloads and empty names are skipped, first entry wins
func AreasFromExtensions(payloads [][]byte) map[string]Area {
	areas := make(map[string]Area)
	for _, raw := range payloads {
		comps, err := ParseExtension(raw)
		if err != nil {
			continue
		}
		for _, c := range comps {
			name := strings.TrimSpace(c.Name)
			if name == "" {
				continue
			}
			key := AreaKey(name)
			if key == "" {
				continue
			}
			if _, ok := areas[key]; !ok {
				areas[key] = Area{NameKey: name, DisplayName: name}
			}
		}
	}
	return areas
}

// Hours converts study load minutes to whole hours, estimating four hours per
// badge when no study load is recorded
func Hours(studyLoadMinutes int64, badges int64) int64 {
	if studyLoadMinutes > 0 {
		return int64(math.Round(float64(studyLoadMinutes) / 60.0))
	}
	return badges * 4
}

// Percentage returns part/total*100 rounded to two decimals, 0 when total is 0
func Percentage(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*100*100) / 100
}

// Percentage1 returns part/total*100 rounded to one decimal, 0 when total is 0
func Percentage1(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*100*10) / 10
}

// MatchArea resolves user input to an area key using progressively looser
// strategies: exact normalized key, display name, nameKey suffix, then
// substring. The second return is false when nothing matched.
// Iteration per strategy is key-ordered so ties resolve deterministically
func MatchArea(input string, areas map[string]Area) (string, bool) {
	norm := AreaKey(Fold(input))
	if norm == "" || len(areas) == 0 {
		return "", false
	}

	keys := make([]string, 0, len(areas))
	for k := range areas {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if AreaKey(k) == norm {
			return k, true
		}
	}
	for _, k := range keys {
		if AreaKey(areas[k].DisplayName) == norm {
			return k, true
		}
	}
	for _, k := range keys {
		nk := areas[k].NameKey
		if i := strings.LastIndex(nk, "."); i >= 0 {
			nk = nk[i+1:]
		}
		if AreaKey(nk) == norm {
			return k, true
		}
	}
	for _, k := range keys {
		if strings.Contains(AreaKey(k), norm) || strings.Contains(AreaKey(areas[k].DisplayName), norm) {
			return k, true
		}
	}
	return "", false
}

// AvailableAreas lists up to limit area keys, sorted, for not-found responses
func AvailableAreas(areas map[string]Area, limit int) []string {
	keys := make([]string, 0, len(areas))
	for k := range areas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}
