package httpapi_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/events"
	"jobcrawl-engine/internal/httpapi"
	"jobcrawl-engine/internal/poll"
	"jobcrawl-engine/internal/store"
)

type fakeCrawler struct {
	mu      sync.Mutex
	running bool
	started []poll.Options
}

func (f *fakeCrawler) Status() poll.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return poll.Status{Running: f.running, LastRunAt: "2025-10-15T09:00:00Z"}
}

func (f *fakeCrawler) Start(_ context.Context, opts poll.Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return poll.ErrAlreadyRunning
	}
	f.running = true
	f.started = append(f.started, opts)
	return nil
}

func newServer(t *testing.T) (*httptest.Server, *fakeCrawler, *events.Hub) {
	t.Helper()
	s, err := store.OpenStore(t.Context(), store.Options{Path: filepath.Join(t.TempDir(), "jobs.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	today := time.Now().UTC().Format(domain.DateLayout)
	_, err = s.UpsertBatch(t.Context(), []domain.JobPosting{
		{ExternalID: "1", Title: "LLM 엔지니어", Keyword: "LLM", PostedDate: today, CrawledAt: time.Now()},
		{ExternalID: "2", Title: "데이터 분석가", Keyword: "데이터 분석", PostedDate: today, CrawledAt: time.Now()},
	})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.OCR.APIKey = "secret-key"
	fc := &fakeCrawler{}
	hub := events.NewHub()
	srv := httptest.NewServer(httpapi.NewHandler(httpapi.Deps{
		Store:       s,
		Hub:         hub,
		Crawler:     fc,
		Cfg:         cfg,
		UserCfgPath: "config.yml",
	}))
	t.Cleanup(srv.Close)
	return srv, fc, hub
}

func TestHealth(t *testing.T) {
	srv, _, _ := newServer(t)

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
	assert.EqualValues(t, 2, body["jobs"])
}

func TestJobs_ListAndFilter(t *testing.T) {
	srv, _, _ := newServer(t)

	res, err := http.Get(srv.URL + "/jobs?keyword=LLM")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var jobs []store.Job
	require.NoError(t, json.NewDecoder(res.Body).Decode(&jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "1", jobs[0].ExternalID)

	bad, err := http.Get(srv.URL + "/jobs?limit=abc")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	var apiErr httpapi.APIError
	require.NoError(t, json.NewDecoder(bad.Body).Decode(&apiErr))
	assert.Equal(t, "invalid_limit", apiErr.Error.Code)
	assert.Equal(t, bad.Header.Get("X-Request-ID"), apiErr.Error.RequestID)
}

func TestCrawlRun_StartsThenConflicts(t *testing.T) {
	srv, fc, _ := newServer(t)

	res, err := http.Post(srv.URL+"/crawl/run", "application/json", strings.NewReader(`{"keywords":["AI"],"pages":2}`))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	require.Len(t, fc.started, 1)
	assert.Equal(t, poll.Options{Keywords: []string{"AI"}, PageLimit: 2}, fc.started[0])

	res, err = http.Post(srv.URL+"/crawl/run", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	res, err = http.Get(srv.URL + "/crawl/status")
	require.NoError(t, err)
	defer res.Body.Close()
	var st poll.Status
	require.NoError(t, json.NewDecoder(res.Body).Decode(&st))
	assert.True(t, st.Running)
}

func TestCrawlRun_RejectsBadBody(t *testing.T) {
	srv, fc, _ := newServer(t)

	res, err := http.Post(srv.URL+"/crawl/run", "application/json", strings.NewReader(`{"nope":1}`))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Empty(t, fc.started)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newServer(t)

	res, err := http.Post(srv.URL+"/jobs", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestConfig_HidesSecrets(t *testing.T) {
	srv, _, _ := newServer(t)

	res, err := http.Get(srv.URL + "/config")
	require.NoError(t, err)
	defer res.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	raw, _ := json.Marshal(body)
	assert.NotContains(t, string(raw), "secret-key")
}

func TestCors_Preflight(t *testing.T) {
	srv, _, _ := newServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/jobs", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, "http://localhost:5173", res.Header.Get("Access-Control-Allow-Origin"))
}

func TestEvents_StreamsHubMessages(t *testing.T) {
	srv, _, hub := newServer(t)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	rd := bufio.NewReader(res.Body)
	readData := func() string {
		for {
			line, err := rd.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}

	var ping events.Event
	require.NoError(t, json.Unmarshal([]byte(readData()), &ping))
	assert.Equal(t, events.TypePing, ping.Type)

	hub.Publish(events.MakeEvent("run-1", events.TypeCrawlStarted, 1, nil))
	var got events.Event
	require.NoError(t, json.Unmarshal([]byte(readData()), &got))
	assert.Equal(t, events.TypeCrawlStarted, got.Type)
	assert.Equal(t, "run-1", got.RunID)
}
