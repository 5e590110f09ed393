package upload

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"support-insights-go/internal/backend"
	"support-insights-go/internal/events"
	"support-insights-go/internal/logger"
	"support-insights-go/internal/metrics"
	"support-insights-go/internal/types"
)

const (
	StatusUploading   = "Uploading..."
	StatusUnsupported = "Unsupported file type"
	StatusSuccess     = "Analyzed Successfully!"
	StatusFailed      = "Upload Failed"
	StatusConnection  = "Connection Error"
)

// ErrBusy is returned when an upload arrives while another one is still
// being processed in the same session.
var ErrBusy = errors.New("upload already in progress")

type Ingester interface {
	Upload(ctx context.Context, src types.SourceType, f backend.File) error
	History(ctx context.Context) ([]types.HistoryEntry, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, f backend.File) error
}

type Publisher interface {
	Publish(ev events.RefreshEvent)
}

type Options struct {
	Log            *logger.Logger
	Metrics        *metrics.Metrics
	OnChange       func()
	FetchTimeout   time.Duration
	UploadTimeout  time.Duration
	AnalyzeTimeout time.Duration
}

// Panel is the upload/history sidebar of one session.
type Panel struct {
	ingest   Ingester
	analyzer Analyzer
	bus      Publisher
	log      *logger.Logger
	metrics  *metrics.Metrics
	onChange func()
	opts     Options

	mu         sync.Mutex
	status     string
	processing bool
	history    []types.HistoryEntry
	historySeq uint64

	bg sync.WaitGroup
}

func NewPanel(ingest Ingester, analyzer Analyzer, bus Publisher, opts Options) *Panel {
	p := &Panel{
		ingest:   ingest,
		analyzer: analyzer,
		bus:      bus,
		log:      opts.Log,
		metrics:  opts.Metrics,
		onChange: opts.OnChange,
		opts:     opts,
	}
	if p.log == nil {
		p.log = logger.Discard()
	}
	p.log = p.log.Component("upload")
	return p
}

type View struct {
	Status        string
	StatusIsError bool
	Processing    bool
	History       []types.HistoryEntry
}

func (p *Panel) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return View{
		Status:        p.status,
		StatusIsError: strings.Contains(p.status, "Error") || strings.Contains(p.status, "Failed"),
		Processing:    p.processing,
		History:       append([]types.HistoryEntry(nil), p.history...),
	}
}

// History returns a copy of the last fetched history.
func (p *Panel) History() []types.HistoryEntry {
	return p.View().History
}

// Upload runs the whole ingestion flow and returns the final status line.
// The only error is ErrBusy.
func (p *Panel) Upload(ctx context.Context, f backend.File) (string, error) {
	p.mu.Lock()
	if p.processing {
		p.mu.Unlock()
		return "", ErrBusy
	}
	kind := Classify(f.ContentType, f.Name)
	if kind == Rejected {
		p.status = StatusUnsupported
		p.mu.Unlock()
		p.log.WithField("file", f.Name).WithField("content_type", f.ContentType).Info("upload rejected")
		p.metrics.Upload(kind.String(), "unsupported")
		p.changed()
		return StatusUnsupported, nil
	}
	p.processing = true
	p.status = StatusUploading
	p.mu.Unlock()
	p.changed()

	defer func() {
		p.mu.Lock()
		p.processing = false
		p.mu.Unlock()
		p.changed()
	}()

	log := p.log.WithField("file", f.Name).WithField("kind", kind.String())
	log.Info("upload started")

	uctx, cancel := withTimeout(ctx, p.opts.UploadTimeout)
	err := p.ingest.Upload(uctx, kind.Source(), f)
	cancel()
	if err != nil {
		status := StatusConnection
		var se *backend.StatusError
		if errors.As(err, &se) {
			status = StatusFailed
		}
		log.WithError(err).Warn("upload failed")
		p.metrics.Upload(kind.String(), "failed")
		p.setStatus(status)
		return status, nil
	}

	if kind == Audio {
		p.analyzeDetached(ctx, f)
	}

	p.setStatus(StatusSuccess)
	p.metrics.Upload(kind.String(), "ok")
	p.RefreshHistory(ctx)

	log.Info("upload analyzed, announcing refresh")
	if p.bus != nil {
		p.bus.Publish(events.RefreshEvent{Source: kind.Source()})
		p.metrics.Refresh(string(kind.Source()))
	}
	return StatusSuccess, nil
}

// analyzeDetached submits the file to the quality auditor without holding
// up the upload. Its outcome is only logged.
func (p *Panel) analyzeDetached(ctx context.Context, f backend.File) {
	if p.analyzer == nil {
		return
	}
	base := context.WithoutCancel(ctx)
	p.bg.Add(1)
	go func() {
		defer p.bg.Done()
		actx, cancel := withTimeout(base, p.opts.AnalyzeTimeout)
		defer cancel()
		if err := p.analyzer.Analyze(actx, f); err != nil {
			p.log.WithError(err).WithField("file", f.Name).Error("scoring server connection failed")
			p.metrics.QualityAnalysis("error")
			return
		}
		p.metrics.QualityAnalysis("ok")
	}()
}

// RefreshHistory replaces the history list, or empties it on any failure.
func (p *Panel) RefreshHistory(ctx context.Context) {
	p.mu.Lock()
	p.historySeq++
	seq := p.historySeq
	p.mu.Unlock()

	hctx, cancel := withTimeout(ctx, p.opts.FetchTimeout)
	entries, err := p.ingest.History(hctx)
	cancel()
	if err != nil {
		p.log.WithError(err).Warn("failed to fetch history")
		entries = nil
	}
	if entries == nil {
		entries = []types.HistoryEntry{}
	}

	p.mu.Lock()
	if seq != p.historySeq {
		p.mu.Unlock()
		p.metrics.Stale("upload")
		return
	}
	p.history = entries
	p.mu.Unlock()
	p.changed()
}

// Wait blocks until detached quality submissions finish.
func (p *Panel) Wait() {
	p.bg.Wait()
}

func (p *Panel) setStatus(s string) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
	p.changed()
}

func (p *Panel) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
