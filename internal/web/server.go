// Package web serves the dashboard page, its panel fragments and the
// notification socket.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"support-insights-go/internal/backend"
	"support-insights-go/internal/dashboard"
	"support-insights-go/internal/insights"
	"support-insights-go/internal/logger"
	"support-insights-go/internal/metrics"
	"support-insights-go/internal/report"
	"support-insights-go/internal/transcript"
	"support-insights-go/internal/upload"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

const (
	CookieName   = "dash_session"
	probeTimeout = 3 * time.Second
	xlsxType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Probe checks one downstream dependency for /readyz.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type Options struct {
	Log            *logger.Logger
	Metrics        *metrics.Metrics
	MaxUploadBytes int64
	SecureCookie   bool
	Probes         []Probe
}

type Server struct {
	sessions *dashboard.Manager
	hub      *Hub
	log      *logger.Logger
	metrics  *metrics.Metrics
	opts     Options
}

func NewServer(sessions *dashboard.Manager, hub *Hub, opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 64 << 20
	}
	return &Server{
		sessions: sessions,
		hub:      hub,
		log:      log.Component("web"),
		metrics:  opts.Metrics,
		opts:     opts,
	}
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/", s.handleIndex)
		r.Post("/upload", s.handleUpload)
		r.Get("/panels/{panel}", s.handlePanel)
		r.Post("/insights/details", s.handleDetails)
		r.Get("/export/history.xlsx", s.handleExport)
		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			s.hub.serve(w, r, sessionFrom(r.Context()).ID)
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		entry := s.log.WithRequest(r).WithFields(logrus.Fields{
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if id := middleware.GetReqID(r.Context()); id != "" {
			entry = entry.WithField("req_id", id)
		}
		if ww.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	})
}

type sessionKey struct{}

// withSession resolves the session cookie, creating a session (and a fresh
// cookie) when it is missing or expired.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(CookieName); err == nil {
			id = c.Value
		}
		sess, created := s.sessions.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.opts.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func sessionFrom(ctx context.Context) *dashboard.Session {
	return ctx.Value(sessionKey{}).(*dashboard.Session)
}

type pageData struct {
	Upload     upload.View
	Transcript transcript.View
	Insights   insights.View
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.Mount(r.Context())
	s.render(w, r, "page", pageData{
		Upload:     sess.Upload.View(),
		Transcript: sess.Transcript.View(""),
		Insights:   sess.Insights.View(),
	})
}

func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	switch panel := chi.URLParam(r, "panel"); panel {
	case dashboard.PanelUpload:
		s.render(w, r, panel, sess.Upload.View())
	case dashboard.PanelTranscript:
		s.render(w, r, panel, sess.Transcript.View(r.URL.Query().Get("q")))
	case dashboard.PanelInsights:
		s.render(w, r, panel, sess.Insights.View())
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	reqLog := s.log.WithRequest(r).WithField("session", sess.ID)

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			reqLog.WithField("limit", tooBig.Limit).Warn("upload too large")
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		reqLog.WithError(err).Warn("missing upload file")
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	data, err := io.ReadAll(file)
	if err != nil {
		reqLog.WithError(err).Warn("failed to read upload")
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	_, err = sess.Upload.Upload(r.Context(), backend.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if errors.Is(err, upload.ErrBusy) {
		s.renderStatus(w, r, http.StatusConflict, dashboard.PanelUpload, sess.Upload.View())
		return
	}

	if r.URL.Query().Get("partial") == "1" {
		s.render(w, r, dashboard.PanelUpload, sess.Upload.View())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	show, err := strconv.ParseBool(r.URL.Query().Get("show"))
	if err != nil {
		http.Error(w, "show must be true or false", http.StatusBadRequest)
		return
	}
	sess := sessionFrom(r.Context())
	sess.Insights.ShowDetails(show)
	s.render(w, r, dashboard.PanelInsights, sess.Insights.View())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	var buf bytes.Buffer
	if err := report.WriteHistory(&buf, sess.Upload.History(), sess.Insights.Scores()); err != nil {
		s.log.WithRequest(r).WithError(err).Error("history export failed")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", `attachment; filename="history.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	status := http.StatusOK
	out := make(map[string]string, len(s.opts.Probes))
	for _, p := range s.opts.Probes {
		if err := p.Check(ctx); err != nil {
			out[p.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		out[p.Name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		s.log.WithError(err).Error("failed to write response")
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	s.renderStatus(w, r, http.StatusOK, name, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.WithRequest(r).WithError(err).WithField("template", name).Error("render failed")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
