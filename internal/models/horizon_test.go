package models

import "testing"

func TestParseFeed(t *testing.T) {
	tests := []struct {
		in      string
		horizon bool
		feed    bool
		air     bool
	}{
		{"2hr", true, true, false},
		{"4day", true, true, false},
		{"psi", false, true, true},
		{"pm25", false, true, true},
		{"uv", false, false, false},
	}
	for _, tt := range tests {
		if _, ok := ParseHorizon(tt.in); ok != tt.horizon {
			t.Errorf("ParseHorizon(%q) ok = %v, want %v", tt.in, ok, tt.horizon)
		}
		h, ok := ParseFeed(tt.in)
		if ok != tt.feed {
			t.Errorf("ParseFeed(%q) ok = %v, want %v", tt.in, ok, tt.feed)
		}
		if ok && h.IsAir() != tt.air {
			t.Errorf("%q IsAir = %v, want %v", tt.in, h.IsAir(), tt.air)
		}
	}
	if len(Horizons) != 3 {
		t.Errorf("the dashboard has %d tabs, want 3", len(Horizons))
	}
}
