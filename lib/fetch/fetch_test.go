package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchWaitsForReadyElement(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		if n < 3 {
			fmt.Fprint(w, "<html><body>loading</body></html>")
			return
		}
		fmt.Fprint(w, `<html><body><div id="openings">open</div></body></html>`)
	}))
	defer server.Close()

	fetcher := NewFetcher(Options{
		ReadyTimeout: 5 * time.Second,
		Backoff:      10 * time.Millisecond,
	})
	doc, err := fetcher.Fetch(context.Background(), server.URL, "#openings")
	require.NoError(t, err)
	require.Equal(t, "open", doc.Find("#openings").Text())
	require.EqualValues(t, 3, atomic.LoadInt32(&requests))
}

func TestFetchNotReady(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>loading</body></html>")
	}))
	defer server.Close()

	fetcher := NewFetcher(Options{
		ReadyTimeout: 50 * time.Millisecond,
		Backoff:      10 * time.Millisecond,
		MaxBackoff:   20 * time.Millisecond,
	})
	_, err := fetcher.Fetch(context.Background(), server.URL, "#openings")
	require.ErrorIs(t, err, ErrNotReady)
}

func TestFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewFetcher(Options{}).Fetch(context.Background(), server.URL, "")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotReady)
}
