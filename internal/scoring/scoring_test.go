package scoring

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-insights-go/internal/backend"
)

func TestScores(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		io.WriteString(w, `{"empathy":7,"compliance":9,"resolution":6,"reasoning":"Polite, verified identity."}`)
	}))
	defer srv.Close()

	q, err := New(srv.URL, backend.NewCaller(srv.Client())).Scores(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7.0, q.Empathy)
	assert.Equal(t, 9.0, q.Compliance)
	assert.Equal(t, 6.0, q.Resolution)
	assert.Equal(t, "Polite, verified identity.", q.Reasoning)
	assert.Empty(t, rawQuery)
}

func TestScores_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, backend.NewCaller(srv.Client())).Scores(context.Background())
	var se *backend.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
}

func TestAnalyze(t *testing.T) {
	var path, name string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, hdr, err := r.FormFile("file")
		if err == nil {
			name = hdr.Filename
		}
		io.WriteString(w, `{"empathy":0}`)
	}))
	defer srv.Close()

	err := New(srv.URL, backend.NewCaller(srv.Client())).Analyze(context.Background(), backend.File{Name: "call.mp3", ContentType: "audio/mpeg", Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "/analyze-quality", path)
	assert.Equal(t, "call.mp3", name)
}
