package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"yaothink/internal/results"
)

// historyRecord mirrors the server's saved analysis record.
type historyRecord struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Title     string          `json:"title"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// renderRecords prints each record through its kind's normalizer, so display
// never depends on which server schema version produced the payload.
func renderRecords(w io.Writer, records []historyRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "暂无记录")
		return nil
	}
	for i, rec := range records {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := rec.Title
		if title == "" {
			title = rec.Kind
		}
		fmt.Fprintf(w, "%s  (%s)\n", title, rec.CreatedAt.Format("2006-01-02 15:04"))
		if err := renderPayload(w, rec.Kind, rec.Payload); err != nil {
			return err
		}
	}
	return nil
}

func renderPayload(w io.Writer, kind string, payload json.RawMessage) error {
	switch kind {
	case "bazi":
		renderWuXing(w, results.NormalizeWuXing(payloadSection(payload, "wuxing")))
		return nil
	case "ziwei":
		renderPalaces(w, results.NormalizePalaces(payloadSection(payload, "palaces")))
		return nil
	case "psychology":
		return renderPsychology(w, payload)
	}
	return writeIndented(w, payload)
}

// payloadSection picks a named section out of the payload. Older records
// stored the section as the whole payload, so a missing key falls back to it.
func payloadSection(payload json.RawMessage, key string) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err == nil {
		if section, ok := obj[key]; ok {
			return section
		}
	}
	return payload
}

var elementOrder = []string{
	results.ElementWood,
	results.ElementFire,
	results.ElementEarth,
	results.ElementMetal,
	results.ElementWater,
}

func renderWuXing(w io.Writer, wx results.WuXing) {
	for _, key := range elementOrder {
		score, hasScore := wx.Scores[key]
		pct, hasPct := wx.Percentages[key]
		if !hasScore && !hasPct {
			continue
		}
		line := fmt.Sprintf("  %s %.1f", results.ElementLabel(key), score)
		if hasPct {
			line += fmt.Sprintf(" (%.0f%%)", pct)
		}
		if balance := wx.Balance[key]; balance != "" {
			line += " " + balance
		}
		fmt.Fprintln(w, line)
	}
}

func renderPalaces(w io.Writer, palaces []results.Palace) {
	for _, p := range palaces {
		fmt.Fprintf(w, "  %s", p.Name)
		if p.GanZhi != "" {
			fmt.Fprintf(w, " [%s]", p.GanZhi)
		}
		for _, star := range p.MainStars {
			fmt.Fprintf(w, " %s", star.Name)
			if star.Brightness != "" {
				fmt.Fprintf(w, "(%s)", star.Brightness)
			}
		}
		fmt.Fprintln(w)
	}
}

// renderPsychology dispatches on the payload's test_type discriminator.
// Unknown test types fall back to indented JSON rather than guessing.
func renderPsychology(w io.Writer, payload json.RawMessage) error {
	var head struct {
		TestType string `json:"test_type"`
	}
	_ = json.Unmarshal(payload, &head)

	switch head.TestType {
	case "mbti":
		mbti := results.NormalizeMBTI(payload)
		fmt.Fprintf(w, "  %s %s\n", mbti.TypeCode, mbti.TypeName)
		if mbti.Description.Text != "" {
			fmt.Fprintf(w, "  %s\n", mbti.Description.Text)
		}
		return nil
	case "big_five", "bigfive":
		b5 := results.NormalizeBigFive(payload)
		if b5.Summary != "" {
			fmt.Fprintf(w, "  %s\n", b5.Summary)
		}
		keys := make([]string, 0, len(b5.Scores))
		for k := range b5.Scores {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			line := fmt.Sprintf("  %s %.0f", b5.DimensionLabel(k), b5.Scores[k])
			if level := b5.Levels[k]; level != "" {
				line += " " + level
			}
			fmt.Fprintln(w, line)
		}
		return nil
	case "archetype":
		arch := results.NormalizeArchetype(payload)
		if arch.Primary != nil {
			fmt.Fprintf(w, "  主导原型: %s\n", arch.Primary.Name)
		}
		if arch.Secondary != nil {
			fmt.Fprintf(w, "  次要原型: %s\n", arch.Secondary.Name)
		}
		return nil
	}
	return writeIndented(w, payload)
}

func writeIndented(w io.Writer, raw json.RawMessage) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("  ", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(raw)
}
