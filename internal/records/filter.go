package records

import (
	"fmt"
	"math"
	"strings"

	"github.com/upiguard/upiguard/internal/models"
)

// StatusFilter is the three-way status selector. All matches everything.
type StatusFilter string

const (
	FilterAll  StatusFilter = "All"
	FilterSafe StatusFilter = "Safe"
	FilterRisk StatusFilter = "Risk"
)

// ParseStatusFilter accepts All, Safe or Risk in any case. Empty means All.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "safe":
		return FilterSafe, nil
	case "risk":
		return FilterRisk, nil
	}
	return "", fmt.Errorf("unknown status filter %q (want All, Safe or Risk)", s)
}

// Matches reports whether rec passes both the search term and the status filter
func Matches(rec models.UPIRecord, term string, status StatusFilter) bool {
	if status != FilterAll && status != "" && string(rec.Status) != string(status) {
		return false
	}
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(rec.Name), term) ||
		strings.Contains(strings.ToLower(rec.UPIID), term)
}

// Filter returns the records matching term and status, in input order
func Filter(recs []models.UPIRecord, term string, status StatusFilter) []models.UPIRecord {
	out := make([]models.UPIRecord, 0, len(recs))
	for _, r := range recs {
		if Matches(r, term, status) {
			out = append(out, r)
		}
	}
	return out
}

// ComputeStats totals the records by status and rounds the average score
func ComputeStats(recs []models.UPIRecord) models.RecordStats {
	stats := models.RecordStats{Total: len(recs)}
	if len(recs) == 0 {
		return stats
	}
	sum := 0
	for _, r := range recs {
		sum += r.Score
		switch r.Status {
		case models.StatusSafe:
			stats.Safe++
		case models.StatusRisk:
			stats.Risk++
		}
	}
	stats.AverageScore = int(math.Round(float64(sum) / float64(len(recs))))
	return stats
}
