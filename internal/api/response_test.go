package api

import (
	"net/http/httptest"
	"testing"
)

func TestQueryLimit(t *testing.T) {
	tests := []struct {
		name  string
		query string
		def   int
		want  int
	}{
		{"absent uses default", "", 50, 50},
		{"explicit value", "limit=10", 50, 10},
		{"huge value is capped", "limit=1000000", 50, maxListLimit},
		{"negative falls back", "limit=-5", 50, 50},
		{"zero falls back", "limit=0", 50, 50},
		{"garbage falls back", "limit=lots", 50, 50},
		{"default above cap is capped", "", 9999, maxListLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/?"+tt.query, nil)
			if got := queryLimit(r, tt.def); got != tt.want {
				t.Errorf("queryLimit(%q, %d) = %d, want %d", tt.query, tt.def, got, tt.want)
			}
		})
	}
}
