package report

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

func fakePDF() []byte {
	return append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), minPDFSize)...)
}

func TestRenderHTMLPostsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		assert.Equal(t, "index.html", header.Filename)
		html, _ := io.ReadAll(file)
		assert.Equal(t, "<p>quote</p>", string(html))
		_, _ = w.Write(fakePDF())
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL+"/", time.Second)
	require.NoError(t, err)
	pdf, err := client.RenderHTML(context.Background(), "<p>quote</p>")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestRenderHTMLRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(fakePDF())
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)
	_, err = client.RenderHTML(context.Background(), "<p>x</p>")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRenderHTMLClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)
	_, err = client.RenderHTML(context.Background(), "<p>x</p>")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrBackend)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient(" ", 0)
	assert.Error(t, err)
}
