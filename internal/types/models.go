package types

import "strings"

// SourceType selects the backend pair (ingestion, transcript, summary).
type SourceType string

const (
	SourceAudio SourceType = "audio"
	SourceText  SourceType = "text"
)

func (s SourceType) Valid() bool {
	return s == SourceAudio || s == SourceText
}

// RawUtterance is one transcript row as the transcription services return it.
// Every field is optional.
type RawUtterance struct {
	Speaker       *string  `json:"speaker"`
	Text          *string  `json:"text"`
	Transcription *string  `json:"transcription"`
	Start         *float64 `json:"start"`
}

// Utterance is the normalized, render-ready form of a RawUtterance.
type Utterance struct {
	Speaker    string `json:"speaker"`
	Text       string `json:"text"`
	TimeOffset string `json:"time"`
}

// IsAgent reports whether the utterance belongs on the agent side.
func (u Utterance) IsAgent() bool {
	return strings.Contains(u.Speaker, "00")
}

type HistoryEntry struct {
	FileName  string `json:"file_name"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

func (h HistoryEntry) DisplayName() string {
	if h.FileName == "" {
		return "Unknown File"
	}
	return h.FileName
}

// IsText is true for chat/text artifacts, false for calls.
func (h HistoryEntry) IsText() bool {
	n := strings.ToLower(h.DisplayName())
	return strings.HasSuffix(n, ".txt") || strings.HasSuffix(n, ".csv")
}
