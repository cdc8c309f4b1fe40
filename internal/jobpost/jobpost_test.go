package jobpost

import (
	"compress/gzip"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-analyzer/internal/apperr"
)

const postingHTML = `<!doctype html>
<html><head><title>Go Engineer</title><style>.x{}</style></head>
<body>
<nav>Home | Jobs</nav>
<div class="job-description">
  <h1>Senior Go Engineer</h1>
  <p>We build   payment services.</p>
  <ul><li>Go</li><li>PostgreSQL</li></ul>
  <script>track()</script>
</div>
<footer>© Company</footer>
</body></html>`

func TestExtractText(t *testing.T) {
	text, err := ExtractText(postingHTML)
	require.NoError(t, err)

	assert.Contains(t, text, "Senior Go Engineer")
	assert.Contains(t, text, "We build payment services.")
	assert.Contains(t, text, "Go\nPostgreSQL")
	assert.NotContains(t, text, "Home | Jobs")
	assert.NotContains(t, text, "track()")
	assert.NotContains(t, text, "Company")
}

func TestExtractTextFallsBackToBody(t *testing.T) {
	text, err := ExtractText(`<html><body><p>Remote role</p><p>Rust welcome</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Remote role\nRust welcome", text)
}

func TestFetchHTML(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(postingHTML))
	}))
	defer srv.Close()

	text, err := New(nil, WithPrivateNetworks()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "Senior Go Engineer")
	assert.Equal(t, userAgent, gotUA)
}

func TestFetchGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte("  Data engineer \n\n  Spark  "))
		_ = gz.Close()
	}))
	defer srv.Close()

	text, err := New(nil, WithPrivateNetworks()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Data engineer\nSpark", text)
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><body><script>x()</script></body></html>"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	tests := []struct {
		name string
		url  string
	}{
		{name: "relative url", url: "/jobs/1"},
		{name: "unsupported scheme", url: "ftp://example.com/job"},
		{name: "not found", url: srv.URL + "/missing"},
		{name: "no text", url: srv.URL + "/empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil, WithPrivateNetworks()).Fetch(context.Background(), tt.url)
			var validation *apperr.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, "job_url", validation.Field)
		})
	}
}

func TestFetchRejectsNonPublicAddresses(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte("internal"))
	}))
	defer srv.Close()

	for _, target := range []string{srv.URL, "http://169.254.169.254/latest/meta-data/"} {
		t.Run(target, func(t *testing.T) {
			_, err := New(nil).Fetch(context.Background(), target)
			var validation *apperr.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, "job_url", validation.Field)
			assert.Contains(t, validation.Message, "public address")
		})
	}
	assert.Zero(t, hits)
}

func TestBlocked(t *testing.T) {
	tests := []struct {
		ip      string
		blocked bool
	}{
		{ip: "127.0.0.1", blocked: true},
		{ip: "::1", blocked: true},
		{ip: "10.1.2.3", blocked: true},
		{ip: "172.16.0.5", blocked: true},
		{ip: "192.168.1.1", blocked: true},
		{ip: "169.254.169.254", blocked: true},
		{ip: "fe80::1", blocked: true},
		{ip: "fd00::1", blocked: true},
		{ip: "0.0.0.0", blocked: true},
		{ip: "::ffff:127.0.0.1", blocked: true},
		{ip: "8.8.8.8", blocked: false},
		{ip: "2001:4860:4860::8888", blocked: false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.blocked, blocked(net.ParseIP(tt.ip)))
		})
	}
}
