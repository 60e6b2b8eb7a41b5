package crossval

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"veridoc/internal/document/models"
)

// FieldWeight states how much one comparable field counts toward the overall
// cross-validation score for a (source, target) type pair.
type FieldWeight struct {
	Field  string  `yaml:"field"`
	Weight float64 `yaml:"weight"`
}

// Config maps sourceType -> targetType -> comparable fields with weights.
// It is read-only at runtime; scores are weight-normalized so the weights of
// a pair need not sum to 1.
type Config map[models.DocumentType]map[models.DocumentType][]FieldWeight

// Comparable returns the weighted field list for a type pair, or nil when
// the pair has nothing comparable. Note the table is deliberately
// asymmetric: [A][B] and [B][A] are looked up independently.
func (c Config) Comparable(source, target models.DocumentType) []FieldWeight {
	targets, ok := c[source]
	if !ok {
		return nil
	}
	return targets[target]
}

// DefaultConfig is the canonical weight table. Names dominate every pair;
// shared identity numbers and birth dates carry the rest.
func DefaultConfig() Config {
	return Config{
		models.DocTypeIDCard: {
			models.DocTypeIDCard:       {{models.FieldName, 0.4}, {models.FieldBirthDate, 0.3}, {models.FieldIDNumber, 0.3}},
			models.DocTypeTaxID:        {{models.FieldName, 0.5}, {models.FieldBirthDate, 0.3}, {models.FieldTaxID, 0.2}},
			models.DocTypeBirthRecord:  {{models.FieldName, 0.4}, {models.FieldBirthDate, 0.4}, {models.FieldMotherName, 0.2}},
			models.DocTypeSchoolRecord: {{models.FieldName, 0.5}, {models.FieldBirthDate, 0.3}},
			models.DocTypeAddressProof: {{models.FieldName, 0.6}},
		},
		models.DocTypeTaxID: {
			models.DocTypeIDCard:       {{models.FieldName, 0.5}, {models.FieldBirthDate, 0.3}, {models.FieldTaxID, 0.2}},
			models.DocTypeTaxID:        {{models.FieldName, 0.5}, {models.FieldTaxID, 0.5}},
			models.DocTypeBirthRecord:  {{models.FieldName, 0.6}, {models.FieldBirthDate, 0.4}},
			models.DocTypeSchoolRecord: {{models.FieldName, 0.6}, {models.FieldBirthDate, 0.3}},
			models.DocTypeAddressProof: {{models.FieldName, 0.6}},
		},
		models.DocTypeAddressProof: {
			models.DocTypeIDCard:       {{models.FieldName, 0.6}},
			models.DocTypeTaxID:        {{models.FieldName, 0.6}},
			models.DocTypeAddressProof: {{models.FieldName, 0.5}, {models.FieldAddress, 0.5}},
			models.DocTypeSchoolRecord: {{models.FieldName, 0.6}},
			models.DocTypeBirthRecord:  {{models.FieldName, 0.6}},
		},
		models.DocTypeSchoolRecord: {
			models.DocTypeIDCard:       {{models.FieldName, 0.5}, {models.FieldBirthDate, 0.3}},
			models.DocTypeTaxID:        {{models.FieldName, 0.6}, {models.FieldBirthDate, 0.3}},
			models.DocTypeBirthRecord:  {{models.FieldName, 0.5}, {models.FieldBirthDate, 0.35}},
			models.DocTypeSchoolRecord: {{models.FieldName, 0.4}, {models.FieldBirthDate, 0.3}, {models.FieldSchoolName, 0.3}},
			models.DocTypeAddressProof: {{models.FieldName, 0.6}},
		},
		models.DocTypeBirthRecord: {
			models.DocTypeIDCard:       {{models.FieldName, 0.4}, {models.FieldBirthDate, 0.4}, {models.FieldMotherName, 0.2}},
			models.DocTypeTaxID:        {{models.FieldName, 0.6}, {models.FieldBirthDate, 0.4}},
			models.DocTypeSchoolRecord: {{models.FieldName, 0.5}, {models.FieldBirthDate, 0.35}},
			models.DocTypeBirthRecord:  {{models.FieldName, 0.4}, {models.FieldBirthDate, 0.3}, {models.FieldMotherName, 0.3}},
			models.DocTypeAddressProof: {{models.FieldName, 0.6}},
		},
	}
}

// LoadConfig reads a weight table override from a YAML file. Used by
// deployments that tune per-field-pair importance without a rebuild.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weight config: %w", err)
	}
	var raw map[string]map[string][]FieldWeight
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse weight config: %w", err)
	}

	cfg := make(Config, len(raw))
	for source, targets := range raw {
		sourceType, err := models.ParseDocumentType(source)
		if err != nil {
			return nil, fmt.Errorf("weight config: %w", err)
		}
		cfg[sourceType] = make(map[models.DocumentType][]FieldWeight, len(targets))
		for target, weights := range targets {
			targetType, err := models.ParseDocumentType(target)
			if err != nil {
				return nil, fmt.Errorf("weight config: %w", err)
			}
			for _, fw := range weights {
				if fw.Weight < 0 || fw.Weight > 1 {
					return nil, fmt.Errorf("weight config: %s/%s field %q weight out of range", source, target, fw.Field)
				}
			}
			cfg[sourceType][targetType] = weights
		}
	}
	return cfg, nil
}
