package constants

// ConfidenceLabel is the human-readable band of a 0..100 confidence score.
type ConfidenceLabel string

const (
	LabelExcellent ConfidenceLabel = "Excellent"
	LabelGood      ConfidenceLabel = "Good"
	LabelFair      ConfidenceLabel = "Fair"
	LabelPoor      ConfidenceLabel = "Poor"
	LabelVeryPoor  ConfidenceLabel = "Very Poor"
)

type labelBand struct {
	min   int
	label ConfidenceLabel
}

// bands are checked top to bottom; the first minimum reached wins.
var bands = []labelBand{
	{95, LabelExcellent},
	{85, LabelGood},
	{70, LabelFair},
	{50, LabelPoor},
}

// LabelFor maps a score to its band.
func LabelFor(score int) ConfidenceLabel {
	for _, b := range bands {
		if score >= b.min {
			return b.label
		}
	}
	return LabelVeryPoor
}

func AllLabels() []string {
	out := make([]string, 0, len(bands)+1)
	for _, b := range bands {
		out = append(out, string(b.label))
	}
	return append(out, string(LabelVeryPoor))
}
