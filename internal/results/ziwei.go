package results

import "encoding/json"

// Star is one star placed in a ZiWei palace.
type Star struct {
	Name       string `json:"name"`
	Brightness string `json:"brightness,omitempty"`
}

// Palace is one of the twelve ZiWei chart palaces.
type Palace struct {
	Name           string `json:"name"`
	GanZhi         string `json:"ganzhi,omitempty"`
	MainStars      []Star `json:"main_stars"`
	AuxiliaryStars []Star `json:"auxiliary_stars"`
	ShaStars       []Star `json:"sha_stars"`
}

// NormalizePalaces maps a raw palace list onto canonical palaces. Star
// entries arrive either as bare name strings (legacy) or as objects with
// name and brightness; palace names appear under "name" or "palace_name".
func NormalizePalaces(raw json.RawMessage) []Palace {
	var in []struct {
		Name       string `json:"name"`
		PalaceName string `json:"palace_name"`
		GanZhi     string `json:"ganzhi"`
		Stars      struct {
			Main      []json.RawMessage `json:"main"`
			Auxiliary []json.RawMessage `json:"auxiliary"`
			Sha       []json.RawMessage `json:"sha"`
		} `json:"stars"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil
	}

	palaces := make([]Palace, 0, len(in))
	for _, p := range in {
		name := p.Name
		if name == "" {
			name = p.PalaceName
		}
		palaces = append(palaces, Palace{
			Name:           name,
			GanZhi:         p.GanZhi,
			MainStars:      normalizeStars(p.Stars.Main),
			AuxiliaryStars: normalizeStars(p.Stars.Auxiliary),
			ShaStars:       normalizeStars(p.Stars.Sha),
		})
	}
	return palaces
}

func normalizeStars(in []json.RawMessage) []Star {
	stars := make([]Star, 0, len(in))
	for _, raw := range in {
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			stars = append(stars, Star{Name: name})
			continue
		}

		var obj Star
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Name != "" {
			stars = append(stars, obj)
		}
	}
	return stars
}
