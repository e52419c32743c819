package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherFetch(t *testing.T) {
	body := "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)

	t.Run("fetches body and hash", func(t *testing.T) {
		res, err := f.Fetch(context.Background(), "airbnb", srv.URL, "")
		require.NoError(t, err)
		assert.Equal(t, []byte(body), res.Body)
		assert.NotEmpty(t, res.Hash)
		assert.False(t, res.Unchanged)
	})

	t.Run("flags unchanged content", func(t *testing.T) {
		first, err := f.Fetch(context.Background(), "airbnb", srv.URL, "")
		require.NoError(t, err)

		second, err := f.Fetch(context.Background(), "airbnb", srv.URL, first.Hash)
		require.NoError(t, err)
		assert.True(t, second.Unchanged)
		assert.Equal(t, first.Hash, second.Hash)
	})

	t.Run("non-200 status is a source error", func(t *testing.T) {
		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer bad.Close()

		_, err := f.Fetch(context.Background(), "booking", bad.URL, "")
		require.Error(t, err)

		var srcErr *SourceError
		require.True(t, errors.As(err, &srcErr))
		assert.Equal(t, "booking", srcErr.Source)
	})

	t.Run("unreachable host is a source error", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), "airbnb", "http://127.0.0.1:1/calendar.ics", "")
		var srcErr *SourceError
		require.True(t, errors.As(err, &srcErr))
	})
}

func TestContentHash(t *testing.T) {
	t.Run("line endings do not affect the hash", func(t *testing.T) {
		crlf := ContentHash([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
		lf := ContentHash([]byte("BEGIN:VCALENDAR\nEND:VCALENDAR\n"))
		assert.Equal(t, crlf, lf)
	})

	t.Run("content changes do", func(t *testing.T) {
		a := ContentHash([]byte("BEGIN:VCALENDAR\nEND:VCALENDAR"))
		b := ContentHash([]byte("BEGIN:VCALENDAR\nX-CHANGED:1\nEND:VCALENDAR"))
		assert.NotEqual(t, a, b)
	})
}
