// Package dashboard composes the three panels of a browser session around
// one refresh bus.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"support-insights-go/internal/events"
	"support-insights-go/internal/insights"
	"support-insights-go/internal/logger"
	"support-insights-go/internal/metrics"
	"support-insights-go/internal/transcript"
	"support-insights-go/internal/types"
	"support-insights-go/internal/upload"
)

const (
	PanelUpload     = "upload"
	PanelTranscript = "transcript"
	PanelInsights   = "insights"
)

// Backends are the service clients a session talks to.
type Backends struct {
	Ingest      upload.Ingester
	Analyzer    upload.Analyzer
	Transcripts transcript.Source
	Summaries   insights.Summarizer
	Scores      insights.Scorer
}

type Settings struct {
	Log            *logger.Logger
	Metrics        *metrics.Metrics
	FetchTimeout   time.Duration
	UploadTimeout  time.Duration
	AnalyzeTimeout time.Duration
}

// Notifier is told whenever a panel of a session changed state.
type Notifier func(sessionID, panel string)

type Session struct {
	ID         string
	Bus        *events.Bus
	Upload     *upload.Panel
	Transcript *transcript.Panel
	Insights   *insights.Panel

	log    *logger.Logger
	cancel context.CancelFunc
	unsubs []func()

	mu       sync.Mutex
	lastSeen time.Time
	mounted  bool
}

func NewSession(id string, b Backends, s Settings, notify Notifier) *Session {
	log := s.Log
	if log == nil {
		log = logger.Discard()
	}
	log = log.With(logrus.Fields{"session": id})

	onChange := func(panel string) func() {
		if notify == nil {
			return nil
		}
		return func() { notify(id, panel) }
	}

	bus := events.NewBus()
	sess := &Session{
		ID:  id,
		Bus: bus,
		Upload: upload.NewPanel(b.Ingest, b.Analyzer, bus, upload.Options{
			Log:            log,
			Metrics:        s.Metrics,
			OnChange:       onChange(PanelUpload),
			FetchTimeout:   s.FetchTimeout,
			UploadTimeout:  s.UploadTimeout,
			AnalyzeTimeout: s.AnalyzeTimeout,
		}),
		Transcript: transcript.NewPanel(b.Transcripts, transcript.Options{
			Log:          log,
			Metrics:      s.Metrics,
			OnChange:     onChange(PanelTranscript),
			FetchTimeout: s.FetchTimeout,
		}),
		Insights: insights.NewPanel(b.Summaries, b.Scores, insights.Options{
			Log:          log,
			Metrics:      s.Metrics,
			OnChange:     onChange(PanelInsights),
			FetchTimeout: s.FetchTimeout,
		}),
		log:      log,
		lastSeen: time.Now(),
	}

	// background fetches outlive the request that triggered the event
	ctx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	sess.unsubs = []func(){
		sess.Transcript.Attach(ctx, bus),
		sess.Insights.Attach(ctx, bus),
		bus.Subscribe(func(events.RefreshEvent) { sess.markMounted() }),
	}
	return sess
}

// Mount performs the initial loads of the session's first page: the history
// list and an audio transcript. Later calls, and calls after an upload already
// announced a transcript, leave the panels alone.
func (s *Session) Mount(ctx context.Context) {
	if !s.markMounted() {
		return
	}
	s.Upload.RefreshHistory(ctx)
	s.Transcript.Refresh(ctx, types.SourceAudio)
}

// markMounted reports whether the session was not mounted yet.
func (s *Session) markMounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := !s.mounted
	s.mounted = true
	return first
}

func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Wait blocks until every background fetch of the session returned.
func (s *Session) Wait() {
	s.Transcript.Wait()
	s.Insights.Wait()
	s.Upload.Wait()
}

// Close detaches the panels and cancels their in-flight fetches. Detached
// quality submissions are left to finish on their own timeout.
func (s *Session) Close() {
	for _, u := range s.unsubs {
		u()
	}
	s.cancel()
	s.Transcript.Close()
	s.Insights.Close()
	s.log.Debug("session closed")
}
