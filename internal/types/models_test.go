package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUtterance_IsAgent(t *testing.T) {
	cases := map[string]bool{
		"Speaker 00":  true,
		"00":          true,
		"Speaker 001": true,
		"SPEAKER_00":  true,
		"Speaker 01":  false,
		"":            false,
	}
	for speaker, want := range cases {
		assert.Equal(t, want, Utterance{Speaker: speaker}.IsAgent(), speaker)
	}
}

func TestHistoryEntry_Display(t *testing.T) {
	assert.Equal(t, "Unknown File", HistoryEntry{}.DisplayName())
	assert.True(t, HistoryEntry{FileName: "chat.CSV"}.IsText())
	assert.True(t, HistoryEntry{FileName: "notes.txt"}.IsText())
	assert.False(t, HistoryEntry{FileName: "call.mp3"}.IsText())
	assert.False(t, HistoryEntry{}.IsText())
}

func TestFactor_Percent(t *testing.T) {
	q := QualityScores{Empathy: 7, Compliance: 12, Resolution: -1}
	f := q.Factors()
	assert.Equal(t, "Empathy", f[0].Label)
	assert.InDelta(t, 70, f[0].Percent(), 0.001)
	assert.InDelta(t, 100, f[1].Percent(), 0.001)
	assert.InDelta(t, 0, f[2].Percent(), 0.001)
}

func TestSourceType_Valid(t *testing.T) {
	assert.True(t, SourceAudio.Valid())
	assert.True(t, SourceText.Valid())
	assert.False(t, SourceType("video").Valid())
	assert.False(t, SourceType("").Valid())
}
