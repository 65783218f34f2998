package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>Admissions</body></html>"))
	}))
	defer server.Close()

	raw, err := New().Fetch(context.Background(), server.URL+"/admissions")
	require.NoError(t, err)
	assert.Equal(t, "text/html", raw.MIMEType)
	assert.Equal(t, server.URL+"/admissions", raw.URI)
	assert.Contains(t, string(raw.Content), "Admissions")
}

func TestFetch_SniffsMissingContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("%PDF-1.4 minimal"))
	}))
	defer server.Close()

	raw, err := New().Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", raw.MIMEType)
}

func TestFetch_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(strings.Repeat("a", 64)))
	}))
	defer server.Close()

	tests := []struct {
		name    string
		fetcher *HTTPFetcher
		url     string
		wantErr error
	}{
		{name: "bad scheme", fetcher: New(), url: "ftp://example.com/a", wantErr: domain.ErrInvalidInput},
		{name: "no host", fetcher: New(), url: "http://", wantErr: domain.ErrInvalidInput},
		{name: "not found", fetcher: New(), url: server.URL + "/missing", wantErr: domain.ErrGateway},
		{name: "too large", fetcher: New(WithMaxBytes(10)), url: server.URL, wantErr: domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fetcher.Fetch(context.Background(), tt.url)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/plain", contentType("text/plain; charset=utf-8", nil))
	assert.Equal(t, "text/html", contentType("", []byte("<!DOCTYPE html><html></html>")))
	assert.Equal(t, "text/plain", contentType(";;;", []byte("plain words")))
}
