package money

import "testing"

func TestFromMajorUnits(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{in: 497.00, want: 49700},
		{in: 0.01, want: 1},
		{in: 1297.50, want: 129750},
		{in: 0, want: 0},
	}
	for _, tt := range tests {
		got, err := FromMajorUnits(tt.in)
		if err != nil {
			t.Fatalf("FromMajorUnits(%v) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("FromMajorUnits(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFromMajorUnitsRejectsSubCent(t *testing.T) {
	if _, err := FromMajorUnits(497.001); err == nil {
		t.Fatal("expected sub-cent amount to be rejected")
	}
}

func TestFromMajorUnitsString(t *testing.T) {
	got, err := FromMajorUnitsString("497.00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 49700 {
		t.Fatalf("got %d, want 49700", got)
	}

	if _, err := FromMajorUnitsString("abc"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestToMajorUnitsRoundTrip(t *testing.T) {
	if got := ToMajorUnits(49700); got != "497.00" {
		t.Fatalf("ToMajorUnits(49700) = %q", got)
	}
	back, err := FromMajorUnitsString(ToMajorUnits(129750))
	if err != nil {
		t.Fatalf("round trip error: %v", err)
	}
	if back != 129750 {
		t.Fatalf("round trip lost precision: %d", back)
	}
}
