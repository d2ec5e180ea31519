package domain

import "testing"

func TestTickSizeAlignFloorCeil(t *testing.T) {
	tick := TickSize(0.01)

	if got := tick.AlignFloor(0.3978); got != 0.39 {
		t.Errorf("AlignFloor(0.3978) = %v, want 0.39", got)
	}
	if got := tick.AlignCeil(0.4022); got != 0.41 {
		t.Errorf("AlignCeil(0.4022) = %v, want 0.41", got)
	}
}

func TestTickSizeClampBounds(t *testing.T) {
	tick := TickSize(0.01)

	if got := tick.Clamp(0.001); got != 0.01 {
		t.Errorf("Clamp(0.001) = %v, want 0.01 (tick floor)", got)
	}
	if got := tick.Clamp(0.999); got != 0.99 {
		t.Errorf("Clamp(0.999) = %v, want 0.99 (1-tick)", got)
	}
}

func TestTickSizeDecimalsAndRound(t *testing.T) {
	cases := []struct {
		tick     TickSize
		decimals int
	}{
		{0.1, 1}, {0.01, 2}, {0.001, 3}, {0.0001, 4},
	}
	for _, c := range cases {
		if got := c.tick.Decimals(); got != c.decimals {
			t.Errorf("TickSize(%v).Decimals() = %d, want %d", c.tick, got, c.decimals)
		}
	}

	tick001 := TickSize(0.001)
	if got := tick001.Round(0.12349999); got != 0.123 {
		t.Errorf("Round with tick=0.001 = %v, want 0.123", got)
	}
}

func TestPriceAbsDiffBps(t *testing.T) {
	a := PriceFromDecimal(0.3978)
	b := PriceFromDecimal(0.3978)
	if diff := a.AbsDiffBps(b); diff != 0 {
		t.Errorf("identical prices should have 0 bp difference, got %v", diff)
	}

	c := PriceFromDecimal(0.3979)
	if diff := a.AbsDiffBps(c); diff != 1 {
		t.Errorf("one-pip difference should be 1 bp, got %v", diff)
	}
}

func TestPriceFromDecimalRoundTrip(t *testing.T) {
	p := PriceFromDecimal(0.4022)
	if p.ToDecimal() != 0.4022 {
		t.Errorf("round trip mismatch: got %v", p.ToDecimal())
	}
}
