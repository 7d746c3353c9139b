package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/metrics"
)

type stubElection struct {
	window domain.ElectionConfig
	stats  domain.Statistics
}

func (s stubElection) Status() (domain.ElectionConfig, domain.Status) {
	return s.window, s.stats.Status
}

func (s stubElection) Statistics() domain.Statistics {
	return s.stats
}

func newTestRouter(m *metrics.Metrics) http.Handler {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	election := stubElection{
		window: domain.ElectionConfig{Start: start, End: start.Add(7 * 24 * time.Hour)},
		stats: domain.Statistics{
			RegisteredUsers: 4,
			VotedUsers:      1,
			Turnout:         25,
			TotalVotes:      1,
			TotalCandidates: 5,
			Status:          domain.StatusActive,
		},
	}
	return NewRouter(RouterConfig{
		Election: election,
		Metrics:  m.Handler(),
		Logger:   zerolog.Nop(),
	}).Handler()
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(metrics.New())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestRouter_Status(t *testing.T) {
	h := newTestRouter(metrics.New())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ACTIVE", body.Status)
	assert.Equal(t, 4, body.RegisteredUsers)
	assert.Equal(t, 25.0, body.Turnout)
	assert.Equal(t, 5, body.Candidates)
}

func TestRouter_Metrics(t *testing.T) {
	m := metrics.New()
	m.RecordVote("", nil)
	h := newTestRouter(m)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ballotbox_votes_cast_total 1")
}

func TestRouter_NotFound(t *testing.T) {
	h := newTestRouter(metrics.New())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/votes", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
