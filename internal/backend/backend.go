// Package backend holds the HTTP plumbing shared by the transcription and
// scoring clients.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"support-insights-go/internal/logger"
	"support-insights-go/internal/metrics"
)

// maxBody bounds every response read from a backend.
const maxBody = 16 << 20

// ErrNotArray is returned by DecodeList when the payload is valid JSON but
// not an array.
var ErrNotArray = errors.New("payload is not a JSON array")

// StatusError reports a non-2xx answer from a backend.
type StatusError struct {
	Service string
	URL     string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned HTTP %d", e.Service, e.URL, e.Code)
}

// File is an upload payload. It is held in memory so the same bytes can be
// sent to more than one service.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Response struct {
	Status int
	Body   []byte
}

func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

func (r Response) Decode(target any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return fmt.Errorf("empty body")
	}
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("json decode error: %w", err)
	}
	return nil
}

// DecodeList decodes an array payload into target, a pointer to a slice.
func (r Response) DecodeList(target any) error {
	trimmed := bytes.TrimSpace(r.Body)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty body")
	}
	if trimmed[0] != '[' {
		return ErrNotArray
	}
	return r.Decode(target)
}

type Option func(*Caller)

func WithClock(now func() time.Time) Option {
	return func(c *Caller) { c.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Caller) { c.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Caller) { c.log = l }
}

// Caller issues the dashboard's backend requests. Timeouts come from the
// caller's context; the dashboard never retries a user-triggered call.
type Caller struct {
	http    *http.Client
	now     func() time.Time
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewCaller(client *http.Client, opts ...Option) *Caller {
	if client == nil {
		client = &http.Client{}
	}
	c := &Caller{http: client, now: time.Now, log: logger.Discard()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CacheBust appends t=<unix millis> so intermediaries never serve a cached
// transcript or summary.
func (c *Caller) CacheBust(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Caller) Get(ctx context.Context, service, endpoint string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Response{}, err
	}
	return c.do(service, req)
}

// PostFile sends f as multipart field "file", keeping its name and type.
func (c *Caller) PostFile(ctx context.Context, service, endpoint string, f File) (Response, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(f.Name)))
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return Response{}, err
	}
	if _, err := part.Write(f.Data); err != nil {
		return Response{}, err
	}
	if err := w.Close(); err != nil {
		return Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &b)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(service, req)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (c *Caller) do(service string, req *http.Request) (Response, error) {
	start := time.Now()
	path := req.URL.Path
	log := c.log.WithField("service", service).WithField("endpoint", path).WithField("method", req.Method)

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveBackend(service, path, "transport_error", time.Since(start))
		log.WithError(err).Debug("backend request failed")
		return Response{}, fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		c.metrics.ObserveBackend(service, path, "read_error", time.Since(start))
		return Response{}, fmt.Errorf("read %s: %w", path, err)
	}

	out := Response{Status: resp.StatusCode, Body: body}
	outcome := "ok"
	if !out.OK() {
		outcome = "http_" + strconv.Itoa(resp.StatusCode)
	}
	c.metrics.ObserveBackend(service, path, outcome, time.Since(start))
	log.WithField("status", resp.StatusCode).WithField("duration_ms", time.Since(start).Milliseconds()).Debug("backend request finished")
	return out, nil
}

// WaitReachable polls base until any HTTP answer comes back or maxElapsed
// runs out. Used at startup only.
func (c *Caller) WaitReachable(ctx context.Context, service, base string, maxElapsed time.Duration) error {
	// backoff treats zero as "retry forever"
	if maxElapsed <= 0 {
		if err := c.Ping(ctx, base); err != nil {
			return fmt.Errorf("%s unreachable at %s: %w", service, base, err)
		}
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = maxElapsed

	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/", nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		resp.Body.Close()
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return fmt.Errorf("%s unreachable at %s: %w", service, base, lastErr)
		}
		return fmt.Errorf("%s unreachable at %s: %w", service, base, err)
	}
	return nil
}

// Ping does a single reachability check with no retry.
func (c *Caller) Ping(ctx context.Context, base string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Join appends path to a base URL.
func Join(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
