package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infrastat/internal/datml"
	"infrastat/pkg/platform/sentinel"
)

// portalStub mimics the statistics portal: a session endpoint handing out a
// token and an upload endpoint answering with a DatML-RES receipt.
type portalStub struct {
	t            *testing.T
	sessionCalls atomic.Int32
	uploadCalls  atomic.Int32
	failSession  bool
	rejectUpload bool
}

func (p *portalStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /session", func(w http.ResponseWriter, r *http.Request) {
		p.sessionCalls.Add(1)
		if p.failSession {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var creds map[string]string
		require.NoError(p.t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(p.t, "reporter", creds["username"])
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
	})
	mux.HandleFunc("POST /declarations/{id}", func(w http.ResponseWriter, r *http.Request) {
		p.uploadCalls.Add(1)
		assert.Equal(p.t, "Bearer tok-1", r.Header.Get("Authorization"))

		var findings []string
		if p.rejectUpload {
			findings = []string{"segment 1 rejected"}
		}
		receipt, err := datml.BuildConfirmation("REF-"+r.PathValue("id"), findings)
		require.NoError(p.t, err)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write(receipt)
	})
	return mux
}

func newTestClient(srv *httptest.Server) *HTTPClient {
	return NewHTTPClient(Config{
		BaseURL:  srv.URL,
		Username: "reporter",
		Password: "s3cret",
		Timeout:  5 * time.Second,
	})
}

func TestUpload_EstablishesSessionOnce(t *testing.T) {
	stub := &portalStub{t: t}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := newTestClient(srv)
	ctx := context.Background()

	out, err := client.Upload(ctx, []byte("<DatML-RAW/>"), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "REF-sub-1", out.Reference)
	assert.NotEmpty(t, out.RawResponse)

	_, err = client.Upload(ctx, []byte("<DatML-RAW/>"), "sub-2")
	require.NoError(t, err)

	assert.Equal(t, int32(1), stub.sessionCalls.Load(), "session is reused across uploads")
	assert.Equal(t, int32(2), stub.uploadCalls.Load())
}

func TestUpload_SessionFailurePropagatesAsUploadFailure(t *testing.T) {
	stub := &portalStub{t: t, failSession: true}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := newTestClient(srv)

	_, err := client.Upload(context.Background(), []byte("<DatML-RAW/>"), "sub-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session")
	assert.Equal(t, int32(0), stub.uploadCalls.Load())
}

func TestUpload_VerificationFindingsAreAnError(t *testing.T) {
	stub := &portalStub{t: t, rejectUpload: true}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := newTestClient(srv)

	_, err := client.Upload(context.Background(), []byte("<DatML-RAW/>"), "sub-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segment 1 rejected")
}

func TestUpload_UnreachablePortal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // shut down immediately

	client := newTestClient(srv)

	_, err := client.Upload(context.Background(), []byte("<DatML-RAW/>"), "sub-1")
	assert.Error(t, err)
}

func TestUpload_CircuitOpensOnRepeatedOutage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // shut down immediately

	client := newTestClient(srv)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := client.Upload(ctx, []byte("<DatML-RAW/>"), "sub-1")
		require.Error(t, err)
	}
	require.True(t, client.breaker.IsOpen())

	// The first open-circuit call counts as the probe; after it the
	// client fails fast without touching the network.
	_, _ = client.Upload(ctx, []byte("<DatML-RAW/>"), "sub-1")
	_, err := client.Upload(ctx, []byte("<DatML-RAW/>"), "sub-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.Contains(t, err.Error(), "circuit open")
}
