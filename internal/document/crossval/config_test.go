package crossval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veridoc/internal/document/models"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("every concrete pair resolves both directions", func(t *testing.T) {
		types := []models.DocumentType{
			models.DocTypeIDCard,
			models.DocTypeTaxID,
			models.DocTypeAddressProof,
			models.DocTypeSchoolRecord,
			models.DocTypeBirthRecord,
		}
		for _, source := range types {
			for _, target := range types {
				assert.NotEmpty(t, cfg.Comparable(source, target), "%s vs %s", source, target)
			}
		}
	})

	t.Run("other has no pairings", func(t *testing.T) {
		assert.Empty(t, cfg.Comparable(models.DocTypeOther, models.DocTypeIDCard))
		assert.Empty(t, cfg.Comparable(models.DocTypeIDCard, models.DocTypeOther))
	})

	t.Run("weights stay in range", func(t *testing.T) {
		for _, targets := range cfg {
			for _, weights := range targets {
				for _, fw := range weights {
					assert.Greater(t, fw.Weight, 0.0)
					assert.LessOrEqual(t, fw.Weight, 1.0)
				}
			}
		}
	})
}

func TestLoadConfig(t *testing.T) {
	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "weights.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	t.Run("valid override", func(t *testing.T) {
		path := write(t, `
id_card:
  tax_id:
    - field: name
      weight: 0.7
    - field: tax_id
      weight: 0.3
`)
		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		weights := cfg.Comparable(models.DocTypeIDCard, models.DocTypeTaxID)
		require.Len(t, weights, 2)
		assert.Equal(t, FieldWeight{Field: models.FieldName, Weight: 0.7}, weights[0])
	})

	t.Run("unknown document type", func(t *testing.T) {
		path := write(t, "passport:\n  tax_id:\n    - field: name\n      weight: 0.5\n")
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "unknown document type")
	})

	t.Run("weight out of range", func(t *testing.T) {
		path := write(t, "id_card:\n  tax_id:\n    - field: name\n      weight: 1.5\n")
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "out of range")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
