package upload

import (
	"strings"

	"support-insights-go/internal/types"
)

// Kind is the routing decision for an uploaded file.
type Kind int

const (
	Rejected Kind = iota
	Audio
	Text
)

func (k Kind) String() string {
	switch k {
	case Audio:
		return "audio"
	case Text:
		return "text"
	default:
		return "rejected"
	}
}

// Source is the refresh tag for k; empty for Rejected.
func (k Kind) Source() types.SourceType {
	switch k {
	case Audio:
		return types.SourceAudio
	case Text:
		return types.SourceText
	}
	return ""
}

// Classify routes by declared media type first, then by file extension.
func Classify(contentType, fileName string) Kind {
	if strings.HasPrefix(contentType, "audio/") {
		return Audio
	}
	n := strings.ToLower(fileName)
	if strings.HasSuffix(n, ".txt") || strings.HasSuffix(n, ".csv") {
		return Text
	}
	return Rejected
}
