package money

import "testing"

func TestMustParseRoundTrip(t *testing.T) {
	t.Parallel()
	d := MustParse("12.345")
	if d.String() != "12.345" {
		t.Errorf("got %s, want 12.345", d.String())
	}
}

func TestIsPositiveAndZero(t *testing.T) {
	t.Parallel()
	if !IsPositive(MustParse("0.0001")) {
		t.Error("0.0001 should be positive")
	}
	if IsPositive(Zero) {
		t.Error("zero should not be positive")
	}
	if !IsZero(Zero) {
		t.Error("Zero should report IsZero")
	}
	if IsZero(MustParse("0.0001")) {
		t.Error("0.0001 should not report IsZero")
	}
}
