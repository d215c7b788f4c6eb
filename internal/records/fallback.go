package records

import (
	_ "embed"
	"fmt"

	"github.com/upiguard/upiguard/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var fallbackYAML []byte

var fallbackRecords = mustParseFallback(fallbackYAML)

// FallbackDataset returns a fresh copy of the bundled sample records
func FallbackDataset() []models.UPIRecord {
	out := make([]models.UPIRecord, len(fallbackRecords))
	copy(out, fallbackRecords)
	return out
}

func parseFallback(data []byte) ([]models.UPIRecord, error) {
	var recs []models.UPIRecord
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse fallback dataset: %w", err)
	}
	seen := make(map[string]bool, len(recs))
	for i, r := range recs {
		if r.ID == "" || r.Name == "" || r.UPIID == "" {
			return nil, fmt.Errorf("fallback record %d: id, name and upiId are required", i)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("fallback record %d: duplicate id %q", i, r.ID)
		}
		if r.Status != models.StatusSafe && r.Status != models.StatusRisk {
			return nil, fmt.Errorf("fallback record %d: unknown status %q", i, r.Status)
		}
		seen[r.ID] = true
	}
	return recs, nil
}

func mustParseFallback(data []byte) []models.UPIRecord {
	recs, err := parseFallback(data)
	if err != nil {
		panic(err)
	}
	return recs
}
