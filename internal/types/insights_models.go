package types

// QualityScores is the auditor output of the scoring service; each score is
// on a 0-10 scale.
type QualityScores struct {
	Empathy    float64 `json:"empathy"`
	Compliance float64 `json:"compliance"`
	Resolution float64 `json:"resolution"`
	Reasoning  string  `json:"reasoning"`
}

// Factor is one bar of the detail overlay.
type Factor struct {
	Label string
	Value float64
	Color string
}

// Percent is the bar width, clamped to 0..100.
func (f Factor) Percent() float64 {
	p := f.Value * 10
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

func (q QualityScores) Factors() []Factor {
	return []Factor{
		{Label: "Empathy", Value: q.Empathy, Color: "blue"},
		{Label: "Compliance", Value: q.Compliance, Color: "emerald"},
		{Label: "Resolution", Value: q.Resolution, Color: "purple"},
	}
}

type ActionItem struct {
	ID        string
	Text      string
	Completed bool
}

type Sentiment struct {
	Label   string
	Percent int
}
