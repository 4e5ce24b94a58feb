package storage

import (
	"testing"
)

// TestTruncInterval verifies the bucket-to-date_trunc mapping.
func TestTruncInterval(t *testing.T) {
	tests := []struct {
		bucket string
		want   string
	}{
		{"1 day", "day"},
		{"1 week", "week"},
		{"1 month", "month"},
		{"anything else", "month"},
	}

	for _, tt := range tests {
		got := truncInterval(tt.bucket)
		if got != tt.want {
			t.Errorf("truncInterval(%q) = %q, want %q", tt.bucket, got, tt.want)
		}
	}
}

// TestEdgeMM verifies that qualitative edges are stored as NULL rather than 0.
func TestEdgeMM(t *testing.T) {
	if v := edgeMM("20mm"); v == nil || *v != 20 {
		t.Errorf("edgeMM(20mm) = %v, want 20", v)
	}
	if v := edgeMM("0mm"); v == nil || *v != 0 {
		t.Errorf("edgeMM(0mm) = %v, want 0", v)
	}
	if v := edgeMM("sphere"); v != nil {
		t.Errorf("edgeMM(sphere) = %v, want nil", *v)
	}
}
