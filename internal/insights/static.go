package insights

import "support-insights-go/internal/types"

// Fixed content; nothing here comes from a backend.

var keywords = []string{
	"Account Access",
	"Authentication",
	"Password Reset",
	"Security",
	"Error Message",
	"Customer Support",
	"Resolution",
	"Login Issue",
}

var actionItems = []types.ActionItem{
	{ID: "1", Text: "Follow up with customer in 24 hours", Completed: false},
	{ID: "2", Text: "Update account security documentation", Completed: true},
	{ID: "3", Text: "Log issue in tracking system", Completed: true},
	{ID: "4", Text: "Send satisfaction survey", Completed: false},
}

var sentiment = types.Sentiment{Label: "Positive", Percent: 85}

func Keywords() []string {
	return append([]string(nil), keywords...)
}

func ActionItems() []types.ActionItem {
	return append([]types.ActionItem(nil), actionItems...)
}

func CurrentSentiment() types.Sentiment {
	return sentiment
}
