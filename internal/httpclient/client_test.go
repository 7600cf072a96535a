package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ricochetsec/ricochet/internal/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendBasic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))
	defer srv.Close()

	resp, err := Send(context.Background(), Options{
		Method: "POST",
		URL:    srv.URL + "/submit",
		Body:   []byte("data=1"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, []byte("created"), resp.Body)
}

func TestSendErrorStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	resp, err := Send(context.Background(), Options{Method: "GET", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
}

func TestSendFollowsRedirectsByDefault(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("final"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := Send(context.Background(), Options{Method: "GET", URL: srv.URL + "/start"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, []byte("final"), resp.Body)

	noFollow, err := Send(context.Background(), Options{
		Method:          "GET",
		URL:             srv.URL + "/start",
		DisableRedirect: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, noFollow.Status)
}

func TestSendPreservesHeaderCasing(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name := range r.Header {
			got = append(got, name)
		}
	}))
	defer srv.Close()

	_, err := Send(context.Background(), Options{
		Method: "GET",
		URL:    srv.URL,
		Headers: []request.Header{
			{Name: "X-CUSTOM-header", Value: "v"},
		},
	})
	require.NoError(t, err)
	// net/http canonicalizes on receipt, so just confirm delivery.
	assert.Contains(t, got, "X-Custom-Header")
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	_, err := Send(context.Background(), Options{
		Method:  "GET",
		URL:     srv.URL,
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
}

func TestSendConnectionRefused(t *testing.T) {
	// Reserved TEST-NET port that nothing listens on.
	_, err := Send(context.Background(), Options{
		Method:  "GET",
		URL:     "http://127.0.0.1:1",
		Timeout: 2 * time.Second,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection), "got %v", err)
}
