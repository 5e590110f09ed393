package insights

import (
	"context"
	"sync"
	"time"

	"support-insights-go/internal/events"
	"support-insights-go/internal/logger"
	"support-insights-go/internal/metrics"
	"support-insights-go/internal/types"
)

const (
	SummaryPlaceholder   = "Waiting for analysis..."
	SummaryMissing       = "No summary found."
	SummaryAudioError    = "Error fetching audio summary."
	SummaryTextError     = "Error fetching text summary."
	ReasoningPlaceholder = "Analysis results will appear here after a call is processed."
)

type Summarizer interface {
	Summary(ctx context.Context, src types.SourceType) (string, error)
}

type Scorer interface {
	Scores(ctx context.Context) (types.QualityScores, error)
}

type Options struct {
	Log          *logger.Logger
	Metrics      *metrics.Metrics
	OnChange     func()
	FetchTimeout time.Duration
}

// Panel holds the summary, quality scores and overlay state of one session.
type Panel struct {
	summarizer Summarizer
	scorer     Scorer
	log        *logger.Logger
	metrics    *metrics.Metrics
	opts       Options

	mu          sync.Mutex
	summary     string
	scores      types.QualityScores
	loading     bool
	showDetails bool
	seq         uint64
	closed      bool

	inflight sync.WaitGroup
}

func NewPanel(summarizer Summarizer, scorer Scorer, opts Options) *Panel {
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Panel{
		summarizer: summarizer,
		scorer:     scorer,
		log:        log.Component("insights"),
		metrics:    opts.Metrics,
		opts:       opts,
		summary:    SummaryPlaceholder,
	}
}

// Refresh runs the fetch chain for tag: audio fetches the summary then the
// quality scores, text only the summary, anything else nothing. Steps of a
// superseded refresh are abandoned.
func (p *Panel) Refresh(ctx context.Context, tag types.SourceType) {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.loading = true
	p.mu.Unlock()
	p.changed()

	switch tag {
	case types.SourceAudio:
		if !p.fetchSummary(ctx, seq, types.SourceAudio) {
			return
		}
		if !p.fetchScores(ctx, seq) {
			return
		}
	case types.SourceText:
		if !p.fetchSummary(ctx, seq, types.SourceText) {
			return
		}
	default:
		p.log.WithField("source", string(tag)).Debug("no insights for source")
	}

	p.mu.Lock()
	if seq == p.seq {
		p.loading = false
	}
	p.mu.Unlock()
	p.changed()
}

// fetchSummary reports false when the refresh was superseded.
func (p *Panel) fetchSummary(ctx context.Context, seq uint64, src types.SourceType) bool {
	fctx, cancel := p.withTimeout(ctx)
	s, err := p.summarizer.Summary(fctx, src)
	cancel()

	switch {
	case err != nil:
		p.log.WithError(err).WithField("source", string(src)).Warn("summary fetch failed")
		s = SummaryAudioError
		if src == types.SourceText {
			s = SummaryTextError
		}
	case s == "":
		s = SummaryMissing
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq {
		p.metrics.Stale("insights")
		return false
	}
	p.summary = s
	return true
}

// fetchScores keeps the previous scores when the fetch fails.
func (p *Panel) fetchScores(ctx context.Context, seq uint64) bool {
	if p.scorer == nil {
		return true
	}
	fctx, cancel := p.withTimeout(ctx)
	q, err := p.scorer.Scores(fctx)
	cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq {
		p.metrics.Stale("insights")
		return false
	}
	if err != nil {
		p.log.WithError(err).Warn("error fetching scores")
		return true
	}
	p.scores = q
	return true
}

// Attach subscribes the panel to refresh announcements; every event runs
// its fetch chain in the background, bound to ctx.
func (p *Panel) Attach(ctx context.Context, bus *events.Bus) func() {
	return bus.Subscribe(func(ev events.RefreshEvent) {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		p.inflight.Add(1)
		p.mu.Unlock()
		go func() {
			defer p.inflight.Done()
			p.Refresh(ctx, ev.Source)
		}()
	})
}

func (p *Panel) Wait() {
	p.inflight.Wait()
}

// Close stops the panel from starting fetches for later events and waits
// for the ones already running.
func (p *Panel) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.inflight.Wait()
}

// ShowDetails opens or closes the factor-analysis overlay.
func (p *Panel) ShowDetails(show bool) {
	p.mu.Lock()
	p.showDetails = show
	p.mu.Unlock()
	p.changed()
}

type View struct {
	Loading     bool
	Summary     string
	Scores      types.QualityScores
	Factors     []types.Factor
	Reasoning   string
	ShowDetails bool
	Sentiment   types.Sentiment
	Keywords    []string
	ActionItems []types.ActionItem
}

func (p *Panel) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	reasoning := p.scores.Reasoning
	if reasoning == "" {
		reasoning = ReasoningPlaceholder
	}
	return View{
		Loading:     p.loading,
		Summary:     p.summary,
		Scores:      p.scores,
		Factors:     p.scores.Factors(),
		Reasoning:   reasoning,
		ShowDetails: p.showDetails,
		Sentiment:   CurrentSentiment(),
		Keywords:    Keywords(),
		ActionItems: ActionItems(),
	}
}

// Scores returns the currently displayed quality scores.
func (p *Panel) Scores() types.QualityScores {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scores
}

func (p *Panel) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.opts.FetchTimeout)
}

func (p *Panel) changed() {
	if p.opts.OnChange != nil {
		p.opts.OnChange()
	}
}
