package dashboard

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-insights-go/internal/backend"
	"support-insights-go/internal/events"
	"support-insights-go/internal/scoring"
	"support-insights-go/internal/transcription"
	"support-insights-go/internal/types"
	"support-insights-go/internal/upload"
)

type hits struct {
	mu    sync.Mutex
	paths []string
}

func (h *hits) add(p string) {
	h.mu.Lock()
	h.paths = append(h.paths, p)
	h.mu.Unlock()
}

func (h *hits) list() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}

type fakeStack struct {
	audio, text, scoring *httptest.Server
	audioHits            *hits
	textHits             *hits
	scoringHits          *hits
	scoresStatus         atomic.Int32
}

func newFakeStack(t *testing.T) *fakeStack {
	fs := &fakeStack{audioHits: &hits{}, textHits: &hits{}, scoringHits: &hits{}}
	fs.scoresStatus.Store(http.StatusOK)
	fs.audio = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.audioHits.add(r.URL.Path)
		switch r.URL.Path {
		case "/upload":
			io.WriteString(w, `{"status":"success","summary":"Password reset."}`)
		case "/history":
			io.WriteString(w, `[{"file_name":"call.mp3","timestamp":"10:15 AM","summary":"Password reset."}]`)
		case "/get-transcript":
			io.WriteString(w, `[{"speaker":"Speaker 00","text":"Hello","start":65},{"speaker":"Speaker 01","text":"I cannot log in"}]`)
		case "/get-summary":
			io.WriteString(w, `{"summary":"Password reset."}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	fs.text = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.textHits.add(r.URL.Path)
		switch r.URL.Path {
		case "/upload-text":
			io.WriteString(w, `{"status":"success"}`)
		case "/get-text-transcript":
			io.WriteString(w, `[{"speaker":"SPEAKER_00","text":"Hi there","start":1}]`)
		case "/get-text-summary":
			io.WriteString(w, `{"summary":"Chat about billing."}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	fs.scoring = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.scoringHits.add(r.URL.Path)
		switch r.URL.Path {
		case "/analyze-quality":
			io.WriteString(w, `{"empathy":7}`)
		case "/get-quality-scores":
			w.WriteHeader(int(fs.scoresStatus.Load()))
			io.WriteString(w, `{"empathy":7,"compliance":8,"resolution":9,"reasoning":"Verified caller."}`)
		}
	}))
	t.Cleanup(func() {
		fs.audio.Close()
		fs.text.Close()
		fs.scoring.Close()
	})
	return fs
}

func (fs *fakeStack) backends() Backends {
	caller := backend.NewCaller(nil)
	tc := transcription.New(fs.audio.URL, fs.text.URL, caller)
	sc := scoring.New(fs.scoring.URL, caller)
	return Backends{Ingest: tc, Analyzer: sc, Transcripts: tc, Summaries: tc, Scores: sc}
}

func TestSession_AudioUploadEndToEnd(t *testing.T) {
	fs := newFakeStack(t)
	var mu sync.Mutex
	notified := map[string]int{}
	sess := NewSession("s1", fs.backends(), Settings{}, func(id, panel string) {
		mu.Lock()
		notified[panel]++
		mu.Unlock()
		assert.Equal(t, "s1", id)
	})
	defer sess.Close()

	status, err := sess.Upload.Upload(context.Background(), backend.File{Name: "call.mp3", ContentType: "audio/mpeg", Data: []byte("ID3")})
	require.NoError(t, err)
	sess.Wait()

	assert.Equal(t, upload.StatusSuccess, status)
	audio := fs.audioHits.list()
	require.Len(t, audio, 4)
	assert.Equal(t, []string{"/upload", "/history"}, audio[:2])
	// the two panels fetch concurrently after the refresh event
	assert.ElementsMatch(t, []string{"/get-transcript", "/get-summary"}, audio[2:])
	assert.ElementsMatch(t, []string{"/analyze-quality", "/get-quality-scores"}, fs.scoringHits.list())
	assert.Empty(t, fs.textHits.list())

	utts := sess.Transcript.Utterances()
	require.Len(t, utts, 2)
	assert.Equal(t, "01:05", utts[0].TimeOffset)
	assert.True(t, utts[0].IsAgent())
	assert.False(t, utts[1].IsAgent())

	v := sess.Insights.View()
	assert.Equal(t, "Password reset.", v.Summary)
	assert.Equal(t, 7.0, v.Scores.Empathy)
	assert.Len(t, sess.Upload.History(), 1)

	mu.Lock()
	defer mu.Unlock()
	assert.Positive(t, notified[PanelUpload])
	assert.Positive(t, notified[PanelTranscript])
	assert.Positive(t, notified[PanelInsights])
}

func TestSession_TextUpload(t *testing.T) {
	fs := newFakeStack(t)
	sess := NewSession("s2", fs.backends(), Settings{}, nil)
	defer sess.Close()

	status, _ := sess.Upload.Upload(context.Background(), backend.File{Name: "notes.TXT", Data: []byte("Agent: hi")})
	sess.Wait()

	assert.Equal(t, upload.StatusSuccess, status)
	assert.ElementsMatch(t, []string{"/upload-text", "/get-text-transcript", "/get-text-summary"}, fs.textHits.list())
	assert.Empty(t, fs.scoringHits.list())
	assert.Equal(t, "Chat about billing.", sess.Insights.View().Summary)
	require.Len(t, sess.Transcript.Utterances(), 1)
	assert.True(t, sess.Transcript.Utterances()[0].IsAgent())
}

func TestSession_ScoresSurviveFailedFetch(t *testing.T) {
	fs := newFakeStack(t)
	sess := NewSession("s3", fs.backends(), Settings{}, nil)
	defer sess.Close()

	sess.Insights.Refresh(context.Background(), "audio")
	require.Equal(t, 7.0, sess.Insights.Scores().Empathy)

	fs.scoresStatus.Store(http.StatusInternalServerError)
	sess.Insights.Refresh(context.Background(), "audio")
	assert.Equal(t, 7.0, sess.Insights.Scores().Empathy)
	assert.Equal(t, "Verified caller.", sess.Insights.Scores().Reasoning)
}

func TestSession_Mount(t *testing.T) {
	fs := newFakeStack(t)
	sess := NewSession("s4", fs.backends(), Settings{}, nil)
	defer sess.Close()

	sess.Mount(context.Background())

	assert.Equal(t, []string{"/history", "/get-transcript"}, fs.audioHits.list())
	assert.Len(t, sess.Transcript.Utterances(), 2)
	assert.Len(t, sess.Upload.History(), 1)

	sess.Mount(context.Background())
	assert.Equal(t, []string{"/history", "/get-transcript"}, fs.audioHits.list(), "second mount is a no-op")
}

func TestSession_MountKeepsUploadedTranscript(t *testing.T) {
	fs := newFakeStack(t)
	sess := NewSession("s5", fs.backends(), Settings{}, nil)
	defer sess.Close()

	_, err := sess.Upload.Upload(context.Background(), backend.File{Name: "notes.txt", Data: []byte("Agent: hi")})
	require.NoError(t, err)
	sess.Wait()

	sess.Mount(context.Background())
	sess.Wait()

	assert.NotContains(t, fs.audioHits.list(), "/get-transcript")
	require.Len(t, sess.Transcript.Utterances(), 1)
	assert.Equal(t, "Hi there", sess.Transcript.Utterances()[0].Text)
}

func TestSession_CloseStopsFetches(t *testing.T) {
	fs := newFakeStack(t)
	sess := NewSession("s6", fs.backends(), Settings{}, nil)
	sess.Close()

	sess.Bus.Publish(events.RefreshEvent{Source: types.SourceText})
	sess.Wait()

	assert.Empty(t, fs.textHits.list())
	assert.Empty(t, fs.scoringHits.list())
}

func TestManager_LifeCycle(t *testing.T) {
	fs := newFakeStack(t)
	m := NewManager(fs.backends(), Settings{}, time.Minute, nil)
	clock := time.Now()
	m.now = func() time.Time { return clock }

	s, created := m.GetOrCreate("")
	require.True(t, created)
	assert.Len(t, s.ID, 36)

	again, created := m.GetOrCreate(s.ID)
	assert.False(t, created)
	assert.Same(t, s, again)

	_, created = m.GetOrCreate("forged-id")
	assert.True(t, created)
	assert.Equal(t, 2, m.Len())

	clock = clock.Add(30 * time.Second)
	m.Get(s.ID)
	clock = clock.Add(45 * time.Second)
	assert.Equal(t, 1, m.Sweep(), "only the untouched session expires")
	_, ok := m.Get(s.ID)
	assert.True(t, ok)

	m.CloseAll()
	assert.Zero(t, m.Len())
}
