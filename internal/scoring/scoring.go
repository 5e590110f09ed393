// Package scoring is the client of the call-quality auditor service.
package scoring

import (
	"context"

	"support-insights-go/internal/backend"
	"support-insights-go/internal/types"
)

const service = "scoring"

type Client struct {
	base   string
	caller *backend.Caller
}

func New(base string, caller *backend.Caller) *Client {
	return &Client{base: base, caller: caller}
}

// Analyze submits f for auditing. The auditor's answer is ignored; only
// transport failures and non-ok codes are reported.
func (c *Client) Analyze(ctx context.Context, f backend.File) error {
	u := backend.Join(c.base, "/analyze-quality")
	resp, err := c.caller.PostFile(ctx, service, u, f)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &backend.StatusError{Service: service, URL: u, Code: resp.Status}
	}
	return nil
}

// Scores fetches the latest audit. Not cache-busted.
func (c *Client) Scores(ctx context.Context) (types.QualityScores, error) {
	u := backend.Join(c.base, "/get-quality-scores")
	resp, err := c.caller.Get(ctx, service, u)
	if err != nil {
		return types.QualityScores{}, err
	}
	if !resp.OK() {
		return types.QualityScores{}, &backend.StatusError{Service: service, URL: u, Code: resp.Status}
	}
	var q types.QualityScores
	if err := resp.Decode(&q); err != nil {
		return types.QualityScores{}, err
	}
	return q, nil
}

func (c *Client) Base() string {
	return c.base
}
