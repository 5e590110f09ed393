package transcript

import (
	"context"
	"sync"
	"time"

	"support-insights-go/internal/events"
	"support-insights-go/internal/logger"
	"support-insights-go/internal/metrics"
	"support-insights-go/internal/types"
)

type Source interface {
	Transcript(ctx context.Context, src types.SourceType) ([]types.RawUtterance, error)
}

type Options struct {
	Log          *logger.Logger
	Metrics      *metrics.Metrics
	OnChange     func()
	FetchTimeout time.Duration
}

// Panel holds the last fetched transcript of one session.
type Panel struct {
	source  Source
	log     *logger.Logger
	metrics *metrics.Metrics
	opts    Options

	mu         sync.Mutex
	utterances []types.Utterance
	loading    bool
	seq        uint64
	closed     bool

	inflight sync.WaitGroup
}

func NewPanel(source Source, opts Options) *Panel {
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Panel{source: source, log: log.Component("transcript"), metrics: opts.Metrics, opts: opts}
}

// resolve maps an event tag onto a host: untagged means audio, anything
// other than audio goes to the text service.
func resolve(src types.SourceType) types.SourceType {
	if src == "" || src == types.SourceAudio {
		return types.SourceAudio
	}
	return types.SourceText
}

// Refresh fetches and replaces the transcript. Only the most recently issued
// fetch may update state; older responses are dropped.
func (p *Panel) Refresh(ctx context.Context, src types.SourceType) {
	src = resolve(src)

	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.loading = true
	p.mu.Unlock()
	p.changed()

	fctx := ctx
	if p.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, p.opts.FetchTimeout)
		defer cancel()
	}

	var next []types.Utterance
	rows, err := p.source.Transcript(fctx, src)
	switch {
	case err != nil:
		p.log.WithError(err).WithField("source", string(src)).Warn("fetch error")
	case len(rows) > 0:
		next = Normalize(rows)
	}

	p.mu.Lock()
	if seq != p.seq {
		p.mu.Unlock()
		p.metrics.Stale("transcript")
		p.log.WithField("source", string(src)).Debug("discarding stale transcript")
		return
	}
	p.utterances = next
	p.loading = false
	p.mu.Unlock()
	p.changed()
}

// Attach subscribes the panel to refresh announcements. Each event starts
// its own fetch in the background, bound to ctx.
func (p *Panel) Attach(ctx context.Context, bus *events.Bus) func() {
	return bus.Subscribe(func(ev events.RefreshEvent) {
		src := resolve(ev.Source)
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		p.inflight.Add(1)
		p.mu.Unlock()
		p.log.WithField("source", string(src)).Info("refreshing transcript")
		go func() {
			defer p.inflight.Done()
			p.Refresh(ctx, src)
		}()
	})
}

// Wait blocks until background fetches started by Attach return.
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

type View struct {
	Loading    bool
	Query      string
	Total      int
	Utterances []types.Utterance
}

// View projects the last fetch through the search query. It never touches
// the network.
func (p *Panel) View(query string) View {
	p.mu.Lock()
	all := p.utterances
	loading := p.loading
	p.mu.Unlock()
	return View{
		Loading:    loading,
		Query:      query,
		Total:      len(all),
		Utterances: Filter(all, query),
	}
}

// Utterances returns a copy of the unfiltered list.
func (p *Panel) Utterances() []types.Utterance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.Utterance(nil), p.utterances...)
}

func (p *Panel) changed() {
	if p.opts.OnChange != nil {
		p.opts.OnChange()
	}
}
