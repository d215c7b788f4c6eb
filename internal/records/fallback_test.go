package records

import (
	"strings"
	"testing"
)

func TestFallbackDataset(t *testing.T) {
	recs := FallbackDataset()
	if len(recs) != 20 {
		t.Fatalf("len = %d, want 20", len(recs))
	}

	// callers get their own copy
	recs[0].Name = "changed"
	if FallbackDataset()[0].Name == "changed" {
		t.Fatal("FallbackDataset shares its backing array")
	}
}

func TestParseFallbackRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "duplicate id", yaml: "- {id: '1', name: A, upiId: a@upi, score: 1, status: Safe}\n- {id: '1', name: B, upiId: b@upi, score: 1, status: Risk}\n", want: "duplicate id"},
		{name: "bad status", yaml: "- {id: '1', name: A, upiId: a@upi, score: 1, status: Maybe}\n", want: "unknown status"},
		{name: "missing name", yaml: "- {id: '1', upiId: a@upi, score: 1, status: Safe}\n", want: "required"},
		{name: "not a list", yaml: "id: 1\n", want: "parse fallback dataset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFallback([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}
