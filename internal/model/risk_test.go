package model

import "testing"

func TestRiskBand(t *testing.T) {
	cases := []struct {
		score float64
		want  Risk
	}{
		{0.95, RiskLow},
		{0.81, RiskLow},
		{0.8, RiskMedium},
		{0.6, RiskMedium},
		{0.59, RiskHigh},
		{0, RiskHigh},
	}
	for _, c := range cases {
		if got := RiskBand(c.score); got != c.want {
			t.Fatalf("RiskBand(%v) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Fatal("completed and failed are terminal")
	}
	if StatusPending.Terminal() || StatusRunning.Terminal() {
		t.Fatal("pending and running are not terminal")
	}
}
