package emu

import (
	"math"
	"testing"
)

func TestMode640x480_Totals(t *testing.T) {
	m := Mode640x480p60
	if got := m.HTotal(); got != 800 {
		t.Errorf("HTotal: got %d, want 800", got)
	}
	if got := m.VTotal(); got != 525 {
		t.Errorf("VTotal: got %d, want 525", got)
	}
	if got := m.VBlank(); got != 45 {
		t.Errorf("VBlank: got %d, want 45", got)
	}
	if got := m.HBlank(); got != 160 {
		t.Errorf("HBlank: got %d, want 160", got)
	}
}

func TestMode640x480_Rates(t *testing.T) {
	m := Mode640x480p60
	if got := m.LineRateHz(); got != 31500 {
		t.Errorf("LineRateHz: got %f, want 31500", got)
	}
	if got := m.FrameRateHz(); math.Abs(got-60) > 1e-9 {
		t.Errorf("FrameRateHz: got %f, want 60", got)
	}
}

func TestDefaultRegion(t *testing.T) {
	if DefaultRegion() != RegionNTSC {
		t.Error("expected NTSC default region")
	}
}
