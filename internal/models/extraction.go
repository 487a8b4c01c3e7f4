package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// LooseString accepts a JSON string, number, or bool and keeps its text form.
// OCR output is not consistently typed.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}

	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = LooseString(strings.TrimSpace(v))
	case '{', '[':
		return fmt.Errorf("cannot decode %s into string", string(data))
	default:
		*s = LooseString(string(data))
	}
	return nil
}

func (s LooseString) String() string {
	return string(s)
}

// LooseList accepts a JSON list of scalars or a single delimited string
type LooseList []string

func (l *LooseList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	if data[0] == '[' {
		var raw []LooseString
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if v := strings.TrimSpace(string(item)); v != "" {
				out = append(out, v)
			}
		}
		*l = out
		return nil
	}

	var single LooseString
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	parts := strings.FieldsFunc(string(single), func(r rune) bool {
		return r == ',' || r == ';' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*l = out
	return nil
}

// ExtractedDimensions accepts either a measurement string ("8.1 x 6.2 x 4.0 mm")
// or an object with length/width/height.
type ExtractedDimensions struct {
	Raw    string
	Length LooseString `json:"length"`
	Width  LooseString `json:"width"`
	Height LooseString `json:"height"`
	Unit   LooseString `json:"unit"`
}

func (d *ExtractedDimensions) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = ExtractedDimensions{}
		return nil
	}

	if data[0] == '{' {
		type plain ExtractedDimensions
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*d = ExtractedDimensions(p)
		return nil
	}

	var raw LooseString
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = ExtractedDimensions{Raw: string(raw)}
	return nil
}

// MarshalJSON emits the raw string when present so cached values round-trip
func (d ExtractedDimensions) MarshalJSON() ([]byte, error) {
	if d.Raw != "" {
		return json.Marshal(d.Raw)
	}
	return json.Marshal(map[string]string{
		"length": string(d.Length),
		"width":  string(d.Width),
		"height": string(d.Height),
		"unit":   string(d.Unit),
	})
}

// IsZero reports whether nothing was extracted
func (d ExtractedDimensions) IsZero() bool {
	return d.Raw == "" && d.Length == "" && d.Width == "" && d.Height == ""
}

// ExtractedMetadata is normalized OCR output for a lab report. Every field is
// optional and none of it is authoritative.
type ExtractedMetadata struct {
	ReportNumber    LooseString          `json:"reportNumber,omitempty"`
	LabName         LooseString          `json:"labName,omitempty"`
	GemType         LooseString          `json:"gemType,omitempty"`
	Variety         LooseString          `json:"variety,omitempty"`
	Weight          LooseString          `json:"weight,omitempty"`
	Dimensions      *ExtractedDimensions `json:"dimensions,omitempty"`
	Shape           LooseString          `json:"shape,omitempty"`
	Cut             LooseString          `json:"cut,omitempty"`
	Color           LooseString          `json:"color,omitempty"`
	Clarity         LooseString          `json:"clarity,omitempty"`
	Origin          LooseString          `json:"origin,omitempty"`
	Treatments      LooseList            `json:"treatments,omitempty"`
	CertificateDate LooseString          `json:"certificateDate,omitempty"`
	Comments        LooseString          `json:"comments,omitempty"`
}

// IsEmpty reports whether no field carries a value
func (m ExtractedMetadata) IsEmpty() bool {
	scalars := []LooseString{
		m.ReportNumber, m.LabName, m.GemType, m.Variety, m.Weight, m.Shape,
		m.Cut, m.Color, m.Clarity, m.Origin, m.CertificateDate, m.Comments,
	}
	for _, s := range scalars {
		if strings.TrimSpace(string(s)) != "" {
			return false
		}
	}
	if m.Dimensions != nil && !m.Dimensions.IsZero() {
		return false
	}
	return len(m.Treatments) == 0
}

// ExtractionResponse is the {success, data, message} answer of both extraction endpoints
type ExtractionResponse struct {
	Success bool               `json:"success"`
	Data    *ExtractedMetadata `json:"data,omitempty"`
	Message string             `json:"message,omitempty"`
}
