package model

// Risk is the display band derived from an AI score. Selection uses the
// recommended action as authoritative; risk is informational only.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// RiskBand maps an AI score to a band: above 0.8 is low risk,
// 0.6 to 0.8 medium, anything below high.
func RiskBand(score float64) Risk {
	if score > 0.8 { return RiskLow }
	if score >= 0.6 { return RiskMedium }
	return RiskHigh
}
