package transcription

import (
	"context"
	"errors"

	"support-insights-go/internal/backend"
	"support-insights-go/internal/types"
)

const (
	serviceAudio = "audio"
	serviceText  = "text"
)

// Summary is the body of /get-summary and /get-text-summary.
type Summary struct {
	Summary string `json:"summary"`
}

// Client talks to the audio transcription service and the text/chat
// service. History is served by the audio service only.
type Client struct {
	audioBase string
	textBase  string
	caller    *backend.Caller
}

func New(audioBase, textBase string, caller *backend.Caller) *Client {
	return &Client{audioBase: audioBase, textBase: textBase, caller: caller}
}

func (c *Client) host(src types.SourceType) (base, service string) {
	if src == types.SourceText {
		return c.textBase, serviceText
	}
	return c.audioBase, serviceAudio
}

// Transcript returns the raw rows of the latest transcript. A payload that
// is not an array yields (nil, nil).
func (c *Client) Transcript(ctx context.Context, src types.SourceType) ([]types.RawUtterance, error) {
	base, service := c.host(src)
	path := "/get-transcript"
	if src == types.SourceText {
		path = "/get-text-transcript"
	}
	resp, err := c.caller.Get(ctx, service, c.caller.CacheBust(backend.Join(base, path)))
	if err != nil {
		return nil, err
	}
	var rows []types.RawUtterance
	if err := resp.DecodeList(&rows); err != nil {
		if errors.Is(err, backend.ErrNotArray) {
			return nil, nil
		}
		return nil, err
	}
	return rows, nil
}

// Summary decodes the summary body whatever the status code; the services
// answer 404 with a JSON detail when no summary exists yet.
func (c *Client) Summary(ctx context.Context, src types.SourceType) (string, error) {
	base, service := c.host(src)
	path := "/get-summary"
	if src == types.SourceText {
		path = "/get-text-summary"
	}
	resp, err := c.caller.Get(ctx, service, c.caller.CacheBust(backend.Join(base, path)))
	if err != nil {
		return "", err
	}
	var s Summary
	if err := resp.Decode(&s); err != nil {
		return "", err
	}
	return s.Summary, nil
}

// History lists recent analyses. Non-array payloads yield (nil, nil).
func (c *Client) History(ctx context.Context) ([]types.HistoryEntry, error) {
	u := backend.Join(c.audioBase, "/history")
	resp, err := c.caller.Get(ctx, serviceAudio, u)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &backend.StatusError{Service: serviceAudio, URL: u, Code: resp.Status}
	}
	var entries []types.HistoryEntry
	if err := resp.DecodeList(&entries); err != nil {
		if errors.Is(err, backend.ErrNotArray) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}

// Upload posts f to /upload (audio) or /upload-text (text). A non-ok answer
// is reported as *backend.StatusError.
func (c *Client) Upload(ctx context.Context, src types.SourceType, f backend.File) error {
	base, service := c.host(src)
	path := "/upload"
	if src == types.SourceText {
		path = "/upload-text"
	}
	u := backend.Join(base, path)
	resp, err := c.caller.PostFile(ctx, service, u, f)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &backend.StatusError{Service: service, URL: u, Code: resp.Status}
	}
	return nil
}

// Hosts maps service names to base URLs for startup probing.
func (c *Client) Hosts() map[string]string {
	return map[string]string{serviceAudio: c.audioBase, serviceText: c.textBase}
}
