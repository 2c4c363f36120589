package results

import "encoding/json"

// MBTIDescription is the narrative part of an MBTI result.
type MBTIDescription struct {
	Text      string   `json:"description"`
	Strengths []string `json:"strengths"`
	Career    []string `json:"career"`
}

// MBTIDimension carries the preference clarity for one letter pair.
type MBTIDimension struct {
	Clarity float64 `json:"clarity"`
}

// MBTIResult is the canonical MBTI payload.
type MBTIResult struct {
	TypeCode    string                   `json:"type_code"`
	TypeName    string                   `json:"type_name"`
	Description MBTIDescription          `json:"description"`
	Dimensions  map[string]MBTIDimension `json:"dimensions"`
}

// NormalizeMBTI maps a raw MBTI payload onto the canonical type. The
// description arrives either as a plain string (legacy) or as an object with
// text, strengths and career lists.
func NormalizeMBTI(raw json.RawMessage) MBTIResult {
	var in struct {
		TypeCode    string                   `json:"type_code"`
		TypeName    string                   `json:"type_name"`
		Description json.RawMessage          `json:"description"`
		Dimensions  map[string]MBTIDimension `json:"dimensions"`
	}
	_ = json.Unmarshal(raw, &in)

	out := MBTIResult{
		TypeCode:   in.TypeCode,
		TypeName:   in.TypeName,
		Dimensions: in.Dimensions,
	}
	if out.Dimensions == nil {
		out.Dimensions = map[string]MBTIDimension{}
	}

	var text string
	if err := json.Unmarshal(in.Description, &text); err == nil {
		out.Description = MBTIDescription{Text: text}
	} else {
		_ = json.Unmarshal(in.Description, &out.Description)
	}
	return out
}

// BigFiveResult is the canonical Big Five payload. Scores and Levels are
// keyed by dimension; DimensionLabel resolves the display name with the
// interpretation's localized label when present.
type BigFiveResult struct {
	Summary        string                      `json:"summary"`
	Scores         map[string]float64          `json:"scores"`
	Levels         map[string]string           `json:"levels"`
	Interpretation map[string]BigFiveDimension `json:"interpretation"`
}

// BigFiveDimension is the per-dimension interpretation text.
type BigFiveDimension struct {
	Dimension string `json:"dimension"`
	Text      string `json:"text"`
}

// DimensionLabel returns the localized label for a dimension key, falling
// back to the key itself when no interpretation exists.
func (r BigFiveResult) DimensionLabel(key string) string {
	if dim, ok := r.Interpretation[key]; ok && dim.Dimension != "" {
		return dim.Dimension
	}
	return key
}

// NormalizeBigFive maps a raw Big Five payload onto the canonical type.
// The summary has lived under "profile.summary" and under a top-level
// "summary" in different server versions.
func NormalizeBigFive(raw json.RawMessage) BigFiveResult {
	var in struct {
		Summary string `json:"summary"`
		Profile struct {
			Summary string `json:"summary"`
		} `json:"profile"`
		Scores         map[string]float64          `json:"scores"`
		Levels         map[string]string           `json:"levels"`
		Interpretation map[string]BigFiveDimension `json:"interpretation"`
	}
	_ = json.Unmarshal(raw, &in)

	summary := in.Summary
	if summary == "" {
		summary = in.Profile.Summary
	}

	out := BigFiveResult{
		Summary:        summary,
		Scores:         in.Scores,
		Levels:         in.Levels,
		Interpretation: in.Interpretation,
	}
	if out.Scores == nil {
		out.Scores = map[string]float64{}
	}
	if out.Levels == nil {
		out.Levels = map[string]string{}
	}
	if out.Interpretation == nil {
		out.Interpretation = map[string]BigFiveDimension{}
	}
	return out
}

// ArchetypeInfo describes one Jungian archetype.
type ArchetypeInfo struct {
	Name        string   `json:"name"`
	English     string   `json:"english"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// ArchetypeResult is the canonical archetype test payload; Secondary may be
// nil when the server omits it.
type ArchetypeResult struct {
	Primary   *ArchetypeInfo `json:"primary"`
	Secondary *ArchetypeInfo `json:"secondary"`
}

// NormalizeArchetype maps a raw archetype payload onto the canonical type.
func NormalizeArchetype(raw json.RawMessage) ArchetypeResult {
	var out ArchetypeResult
	_ = json.Unmarshal(raw, &out)
	return out
}
