// Package matcher reconciles loosely typed OCR output with the controlled
// vocabularies of the listing form. It only returns what it could match.
package matcher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/johnrirwin/gemlisting/internal/models"
)

var (
	numberPattern       = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	weightPattern       = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(cts?|carats?|grams?|g)?\b`)
	dimensionSeparator  = regexp.MustCompile(`(?i)\s*[x×*]\s*`)
	reportNumberPrefix  = regexp.MustCompile(`(?i)^(report|certificate|cert)?\s*(no\.?|number|#)?\s*[:#]?\s*`)
	reportNumberInvalid = regexp.MustCompile(`[^A-Za-z0-9\-/]`)
)

// Match maps extracted metadata to the draft fields it can fill
func Match(meta models.ExtractedMetadata) models.DraftPatch {
	var patch models.DraftPatch

	if v := cleanReportNumber(meta.ReportNumber.String()); v != "" {
		patch.ReportNumber = &v
	}
	if v, ok := Labs.Match(meta.LabName.String()); ok {
		patch.LabName = &v
	}

	// Labs report species and variety inconsistently, try both for the gem type
	if v, ok := GemTypes.Match(meta.GemType.String()); ok {
		patch.GemType = &v
	} else if v, ok := GemTypes.Match(meta.Variety.String()); ok {
		patch.GemType = &v
	}
	if v := strings.TrimSpace(meta.Variety.String()); v != "" {
		patch.Variety = &v
	}

	if v, ok := Colors.Match(meta.Color.String()); ok {
		patch.Color = &v
	}
	if v, ok := ClarityGrades.Match(meta.Clarity.String()); ok {
		patch.Clarity = &v
	}
	if v, ok := Origins.Match(meta.Origin.String()); ok {
		patch.Origin = &v
	}
	if v := matchTreatments(meta.Treatments); len(v) > 0 {
		patch.Treatments = v
	}

	if w, ok := ParseWeight(meta.Weight.String()); ok {
		patch.Weight = &w
	}
	if meta.Dimensions != nil {
		if d, ok := parseDimensions(*meta.Dimensions); ok {
			patch.Dimensions = &d
		}
	}

	if v, ok := Shapes.Match(meta.Shape.String()); ok {
		patch.Shape = &v
	}
	cutSource := meta.Cut.String()
	if strings.TrimSpace(cutSource) == "" {
		cutSource = meta.Shape.String()
	}
	if v, ok := Cuts.Match(cutSource); ok {
		patch.Cut = &v
	}

	return patch
}

func cleanReportNumber(raw string) string {
	v := strings.TrimSpace(raw)
	v = reportNumberPrefix.ReplaceAllString(v, "")
	v = reportNumberInvalid.ReplaceAllString(v, "")
	return v
}

func matchTreatments(raw []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range raw {
		term, ok := Treatments.Match(item)
		if !ok || seen[term] {
			continue
		}
		seen[term] = true
		out = append(out, term)
	}
	return out
}

// ParseWeight reads "2.35 ct", "2,35 carats" or "0.47 g". Bare numbers are carats.
func ParseWeight(raw string) (models.Weight, bool) {
	m := weightPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return models.Weight{}, false
	}

	value, err := parseNumber(m[1])
	if err != nil || value <= 0 {
		return models.Weight{}, false
	}

	unit := models.WeightUnitCarat
	if u := strings.ToLower(m[2]); strings.HasPrefix(u, "g") {
		unit = models.WeightUnitGram
	}
	return models.Weight{Value: value, Unit: unit}, true
}

// ParseDimensions reads "8.12 x 6.45 x 4.01 mm". Ranges such as
// "8.12-8.20" keep their first value.
func ParseDimensions(raw string) (models.Dimensions, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Dimensions{}, false
	}

	unit := "mm"
	if strings.Contains(strings.ToLower(raw), "cm") {
		unit = "cm"
	}

	var values []float64
	for _, part := range dimensionSeparator.Split(raw, -1) {
		num := numberPattern.FindString(part)
		if num == "" {
			continue
		}
		v, err := parseNumber(num)
		if err != nil || v <= 0 {
			continue
		}
		values = append(values, v)
	}
	if len(values) < 2 {
		return models.Dimensions{}, false
	}

	d := models.Dimensions{Length: values[0], Width: values[1], Unit: unit}
	if len(values) > 2 {
		d.Height = values[2]
	}
	return d, true
}

func parseDimensions(ed models.ExtractedDimensions) (models.Dimensions, bool) {
	if ed.Raw != "" {
		return ParseDimensions(ed.Raw)
	}

	length, errL := parseNumber(numberPattern.FindString(ed.Length.String()))
	width, errW := parseNumber(numberPattern.FindString(ed.Width.String()))
	if errL != nil || errW != nil || length <= 0 || width <= 0 {
		return models.Dimensions{}, false
	}

	d := models.Dimensions{Length: length, Width: width, Unit: "mm"}
	if h, err := parseNumber(numberPattern.FindString(ed.Height.String())); err == nil && h > 0 {
		d.Height = h
	}
	if u := strings.TrimSpace(strings.ToLower(ed.Unit.String())); u != "" {
		d.Unit = u
	}
	return d, true
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}
