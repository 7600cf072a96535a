package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ricochetsec/ricochet/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testID = "a1b2c3d4e5f60718"

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedInjection(t *testing.T, st *store.Store, id string) {
	t.Helper()
	err := st.RecordInjection(store.InjectionRecord{
		ID:         id,
		TargetURL:  "http://target.example/search?q=x",
		Parameter:  "query:q",
		Payload:    "<img src=http://cb.example/" + id + ">",
		Context:    "xss",
		InjectedAt: 1000,
	})
	require.NoError(t, err)
}

func callbackResponse(t *testing.T, handler http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHTTPCallbackKnownID(t *testing.T) {
	st := openTestStore(t)
	seedInjection(t, st, testID)
	srv := &HTTPServer{Store: st}

	rec := callbackResponse(t, srv.Handler(), "GET", "/"+testID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "2", rec.Header().Get("Content-Length"))

	callbacks, err := st.CallbacksForInjection(testID)
	require.NoError(t, err)
	require.Len(t, callbacks, 1)
	assert.Equal(t, "/"+testID, callbacks[0].RequestPath)
}

func TestHTTPCallbackLastSegmentWins(t *testing.T) {
	st := openTestStore(t)
	seedInjection(t, st, testID)
	srv := &HTTPServer{Store: st}

	// ID buried under a prefix path, with a trailing slash.
	callbackResponse(t, srv.Handler(), "GET", "/callback/v1/"+testID+"/", nil)

	callbacks, err := st.CallbacksForInjection(testID)
	require.NoError(t, err)
	assert.Len(t, callbacks, 1)
}

func TestHTTPCallbackResponseIdenticalForUnknownID(t *testing.T) {
	st := openTestStore(t)
	seedInjection(t, st, testID)
	srv := &HTTPServer{Store: st}

	known := callbackResponse(t, srv.Handler(), "GET", "/"+testID, nil)
	unknown := callbackResponse(t, srv.Handler(), "GET", "/ffffffffffffffff", nil)

	assert.Equal(t, known.Code, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
	assert.Equal(t, known.Header(), unknown.Header())

	// The unknown ID left no trace.
	callbacks, err := st.CallbacksForInjection("ffffffffffffffff")
	require.NoError(t, err)
	assert.Empty(t, callbacks)
}

func TestHTTPCallbackRejectsMalformedIDs(t *testing.T) {
	st := openTestStore(t)
	seedInjection(t, st, testID)
	srv := &HTTPServer{Store: st}

	for _, path := range []string{
		"/a1b2c3d4e5f6071",   // 15 chars
		"/a1b2c3d4e5f607189", // 17 chars
		"/A1B2C3D4E5F60718",  // uppercase
		"/favicon.ico",
		"/",
	} {
		rec := callbackResponse(t, srv.Handler(), "GET", path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, "path %q", path)
		assert.Equal(t, "OK", rec.Body.String(), "path %q", path)
	}

	callbacks, err := st.CallbacksForInjection(testID)
	require.NoError(t, err)
	assert.Empty(t, callbacks)
}

func TestHTTPCallbackCapturesHeadersAndBody(t *testing.T) {
	st := openTestStore(t)
	seedInjection(t, st, testID)
	srv := &HTTPServer{Store: st}

	req := httptest.NewRequest("POST", "/"+testID, strings.NewReader("exfil=data"))
	req.Header.Set("User-Agent", "curl/8.0")
	req.Header.Set("X-Leaked", "internal-value")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	callbacks, err := st.CallbacksForInjection(testID)
	require.NoError(t, err)
	require.Len(t, callbacks, 1)
	assert.Equal(t, "curl/8.0", callbacks[0].Headers["User-Agent"])
	assert.Equal(t, "internal-value", callbacks[0].Headers["X-Leaked"])
	assert.Equal(t, "exfil=data", string(callbacks[0].Body))
}

func TestHTTPCallbackAnyMethod(t *testing.T) {
	st := openTestStore(t)
	seedInjection(t, st, testID)
	srv := &HTTPServer{Store: st}

	for _, method := range []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"} {
		rec := callbackResponse(t, srv.Handler(), method, "/"+testID, nil)
		assert.Equal(t, http.StatusOK, rec.Code, "method %s", method)
	}

	callbacks, err := st.CallbacksForInjection(testID)
	require.NoError(t, err)
	assert.Len(t, callbacks, 5)
}
