package dart

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// FieldMappings renames raw DART field keys to the Korean display names
// the report renderers expect, and rewrites coded values (시장 구분) to
// readable ones. Join keys such as rcept_no are deliberately not mapped.
type FieldMappings struct {
	Fields map[string]string            `yaml:"fields"`
	Values map[string]map[string]string `yaml:"values"`
}

// DefaultFieldMappings returns the built-in mapping used when no
// override file is configured.
func DefaultFieldMappings() *FieldMappings {
	return &FieldMappings{
		Fields: map[string]string{
			"rcept_dt": "접수일자",
			"flr_nm":   "제출인",
			"rm":       "비고",
		},
		Values: map[string]map[string]string{
			"corp_cls": CorpClassNames,
		},
	}
}

// LoadFieldMappings reads a mapping override from a YAML file.
func LoadFieldMappings(path string) (*FieldMappings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read field mappings: %w", err)
	}
	var m FieldMappings
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse field mappings: %w", err)
	}
	if m.Fields == nil {
		m.Fields = map[string]string{}
	}
	if m.Values == nil {
		m.Values = map[string]map[string]string{}
	}
	return &m, nil
}

// Apply rewrites one row in place-order: coded values first, then key
// renames. The original row is not modified.
func (m *FieldMappings) Apply(row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for key, value := range row {
		if valueMap, ok := m.Values[key]; ok {
			if s, isStr := value.(string); isStr {
				if mapped, found := valueMap[s]; found {
					value = mapped
				}
			}
		}
		if display, ok := m.Fields[key]; ok {
			out[display] = value
			continue
		}
		out[key] = value
	}
	return out
}

// ApplyAll maps every row.
func (m *FieldMappings) ApplyAll(rows []map[string]interface{}) []map[string]interface{} {
	if len(rows) == 0 {
		return rows
	}
	out := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		out[i] = m.Apply(row)
	}
	return out
}
