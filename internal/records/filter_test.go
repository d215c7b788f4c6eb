package records

import (
	"strings"
	"testing"

	"github.com/upiguard/upiguard/internal/models"
)

func TestFilter(t *testing.T) {
	recs := FallbackDataset()

	tests := []struct {
		name     string
		term     string
		status   StatusFilter
		expected int
	}{
		{name: "everything", term: "", status: FilterAll, expected: 20},
		{name: "safe only", term: "", status: FilterSafe, expected: 10},
		{name: "risk only", term: "", status: FilterRisk, expected: 10},
		{name: "name match is case-insensitive", term: "KAPOOR", status: FilterAll, expected: 2},
		{name: "upi id match", term: "@bank", status: FilterAll, expected: 10},
		{name: "search and status combine", term: "kapoor", status: FilterRisk, expected: 1},
		{name: "no match", term: "zzz", status: FilterAll, expected: 0},
		{name: "empty status is all", term: "sharma", status: "", expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(recs, tt.term, tt.status)
			if len(got) != tt.expected {
				t.Fatalf("Filter(%q, %q) = %d records, want %d", tt.term, tt.status, len(got), tt.expected)
			}
		})
	}
}

// The filtered count always equals a direct count of the predicate.
func TestFilterCountProperty(t *testing.T) {
	recs := FallbackDataset()
	terms := []string{"", "a", "SH", "upi", "@", "reddy", "1", "x"}
	filters := []StatusFilter{FilterAll, FilterSafe, FilterRisk}

	for _, term := range terms {
		for _, f := range filters {
			want := 0
			for _, r := range recs {
				nameOrID := strings.Contains(strings.ToLower(r.Name), strings.ToLower(term)) ||
					strings.Contains(strings.ToLower(r.UPIID), strings.ToLower(term))
				statusOK := f == FilterAll || string(r.Status) == string(f)
				if nameOrID && statusOK {
					want++
				}
			}
			if got := len(Filter(recs, term, f)); got != want {
				t.Errorf("Filter(%q, %s) = %d, want %d", term, f, got, want)
			}
		}
	}
}

func TestParseStatusFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    StatusFilter
		wantErr bool
	}{
		{in: "", want: FilterAll},
		{in: "all", want: FilterAll},
		{in: "Safe", want: FilterSafe},
		{in: " RISK ", want: FilterRisk},
		{in: "maybe", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseStatusFilter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseStatusFilter(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseStatusFilter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats([]models.UPIRecord{
		{Score: 80, Status: models.StatusSafe},
		{Score: 45, Status: models.StatusRisk},
		{Score: 50, Status: models.StatusRisk},
	})
	want := models.RecordStats{Total: 3, Safe: 1, Risk: 2, AverageScore: 58}
	if stats != want {
		t.Fatalf("ComputeStats = %+v, want %+v", stats, want)
	}

	if empty := ComputeStats(nil); empty != (models.RecordStats{}) {
		t.Fatalf("ComputeStats(nil) = %+v", empty)
	}
}
