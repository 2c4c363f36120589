package results

import "encoding/json"

// Canonical five-element keys.
const (
	ElementWood  = "wood"
	ElementFire  = "fire"
	ElementEarth = "earth"
	ElementMetal = "metal"
	ElementWater = "water"
)

// Older servers key element maps by the localized labels; newer ones use
// normalized keys. Both map onto the canonical keys.
var elementKeys = map[string]string{
	"木":     ElementWood,
	"火":     ElementFire,
	"土":     ElementEarth,
	"金":     ElementMetal,
	"水":     ElementWater,
	"wood":  ElementWood,
	"fire":  ElementFire,
	"earth": ElementEarth,
	"metal": ElementMetal,
	"water": ElementWater,
}

// ElementLabel returns the localized display label for a canonical key.
func ElementLabel(key string) string {
	switch key {
	case ElementWood:
		return "木"
	case ElementFire:
		return "火"
	case ElementEarth:
		return "土"
	case ElementMetal:
		return "金"
	case ElementWater:
		return "水"
	}
	return key
}

// WuXing is the canonical five-element distribution of a BaZi analysis.
type WuXing struct {
	Scores      map[string]float64 `json:"scores"`
	Percentages map[string]float64 `json:"percentages"`
	Balance     map[string]string  `json:"balance"`
}

// NormalizeWuXing maps a raw wuxing payload onto canonical element keys.
func NormalizeWuXing(raw json.RawMessage) WuXing {
	var in struct {
		Scores      map[string]float64 `json:"scores"`
		Percentages map[string]float64 `json:"percentages"`
		Balance     map[string]string  `json:"balance"`
	}
	// Decode failures leave the zero struct; the result is then empty maps.
	_ = json.Unmarshal(raw, &in)

	return WuXing{
		Scores:      normalizeElementKeys(in.Scores),
		Percentages: normalizeElementKeys(in.Percentages),
		Balance:     normalizeElementStrings(in.Balance),
	}
}

func normalizeElementKeys(in map[string]float64) map[string]float64 {
	out := map[string]float64{}
	for key, value := range in {
		if canonical, ok := elementKeys[key]; ok {
			out[canonical] = value
		}
	}
	return out
}

func normalizeElementStrings(in map[string]string) map[string]string {
	out := map[string]string{}
	for key, value := range in {
		if canonical, ok := elementKeys[key]; ok {
			out[canonical] = value
		}
	}
	return out
}
