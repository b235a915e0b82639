package httpclient

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	host, status string
	elapsed      time.Duration
}

type recorder struct {
	mu   sync.Mutex
	seen []observation
}

func (r *recorder) observe(host, status string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, observation{host, status, elapsed})
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	client := New(nil)
	tr, ok := client.Transport.(*transport)
	require.True(t, ok)
	assert.Equal(t, DefaultUserAgent, tr.userAgent)
	assert.Zero(t, client.Timeout)

	base, ok := tr.base.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, defaultMaxIdleConnsPerHost, base.MaxIdleConnsPerHost)
	assert.Zero(t, base.ResponseHeaderTimeout)
}

func TestNewDoesNotMutateConfig(t *testing.T) {
	t.Parallel()

	cfg := Config{UserAgent: "TestAgent/1.0"}
	client := New(&cfg)

	assert.Zero(t, cfg.MaxIdleConns)
	assert.Equal(t, "TestAgent/1.0", client.Transport.(*transport).userAgent)
}

func TestUserAgentInjection(t *testing.T) {
	t.Parallel()

	mock := httpmock.NewMockTransport()
	var agents []string
	mock.RegisterResponder(http.MethodGet, "https://models.example/v1",
		func(req *http.Request) (*http.Response, error) {
			agents = append(agents, req.Header.Get("User-Agent"))
			return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
		})

	client := New(&Config{Base: mock})

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "https://models.example/v1", http.NoBody)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Empty(t, req.Header.Get("User-Agent"), "caller request must not be modified")

	req, err = http.NewRequestWithContext(t.Context(), http.MethodGet, "https://models.example/v1", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom/2.0")
	resp, err = client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, []string{DefaultUserAgent, "custom/2.0"}, agents)
}

func TestObserverReceivesStatus(t *testing.T) {
	t.Parallel()

	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodPost, "https://models.example/generate",
		httpmock.NewStringResponder(http.StatusTooManyRequests, `{"error":"quota"}`))
	mock.RegisterResponder(http.MethodPost, "https://down.example/generate",
		httpmock.NewErrorResponder(io.ErrUnexpectedEOF))

	rec := &recorder{}
	client := New(&Config{Base: mock, Observer: rec.observe})

	resp, err := client.Post("https://models.example/generate", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	_, err = client.Post("https://down.example/generate", "application/json", nil)
	require.Error(t, err)

	require.Len(t, rec.seen, 2)
	assert.Equal(t, "models.example", rec.seen[0].host)
	assert.Equal(t, "429", rec.seen[0].status)
	assert.Equal(t, "down.example", rec.seen[1].host)
	assert.Equal(t, StatusError, rec.seen[1].status)
}

func TestContextCancellation(t *testing.T) {
	t.Parallel()

	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodGet, "https://slow.example/",
		func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		})

	rec := &recorder{}
	client := New(&Config{Base: mock, Observer: rec.observe})

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://slow.example/", http.NoBody)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
	require.Len(t, rec.seen, 1)
	assert.Equal(t, StatusError, rec.seen[0].status)
}
