package transcript

import (
	"fmt"
	"math"
	"strings"

	"support-insights-go/internal/types"
)

const (
	defaultSpeaker = "Speaker 00"
	defaultOffset  = "00:00"
)

// Normalize maps raw backend rows onto render-ready utterances.
func Normalize(rows []types.RawUtterance) []types.Utterance {
	out := make([]types.Utterance, 0, len(rows))
	for _, r := range rows {
		u := types.Utterance{Speaker: defaultSpeaker, TimeOffset: defaultOffset}
		if r.Speaker != nil && *r.Speaker != "" {
			u.Speaker = *r.Speaker
		}
		switch {
		case r.Text != nil && *r.Text != "":
			u.Text = *r.Text
		case r.Transcription != nil:
			u.Text = *r.Transcription
		}
		if r.Start != nil && *r.Start != 0 {
			u.TimeOffset = FormatOffset(*r.Start)
		}
		out = append(out, u)
	}
	return out
}

// FormatOffset renders seconds as MM:SS, the minute and second fields of a
// clock time. Offsets of an hour or more wrap.
func FormatOffset(seconds float64) string {
	ms := int64(math.Floor(seconds * 1000))
	const hour = int64(3600 * 1000)
	ms = ((ms % hour) + hour) % hour
	return fmt.Sprintf("%02d:%02d", ms/60000, (ms%60000)/1000)
}

// Filter keeps the utterances whose text contains query, ignoring case.
func Filter(list []types.Utterance, query string) []types.Utterance {
	if query == "" {
		return append([]types.Utterance(nil), list...)
	}
	q := strings.ToLower(query)
	var out []types.Utterance
	for _, u := range list {
		if strings.Contains(strings.ToLower(u.Text), q) {
			out = append(out, u)
		}
	}
	return out
}
