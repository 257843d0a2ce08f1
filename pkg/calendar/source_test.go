package calendar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeICS(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cal.ics")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGetCalendarFromFile(t *testing.T) {
	path := writeICS(t, icsTwoEvents)
	source := NewSource(nil)
	ctx := context.Background()

	fromURL, err := source.GetCalendar(ctx, "file://"+path)
	require.NoError(t, err)
	require.NotNil(t, fromURL)

	fromPath, err := source.GetCalendar(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, fromPath)

	instant := utc(2023, 4, 27, 17, 30)
	assert.Len(t, GetEvents(fromURL, instant), 2)
	assert.Equal(t, len(GetEvents(fromURL, instant)), len(GetEvents(fromPath, instant)))
}

func TestGetCalendarMissingFile(t *testing.T) {
	_, err := NewSource(nil).GetCalendar(context.Background(), filepath.Join(t.TempDir(), "missing.ics"))
	assert.Error(t, err)
}

func TestGetCalendarHTTP(t *testing.T) {
	var (
		mu        sync.Mutex
		requested []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested = append(requested, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/cal.ics":
			w.Header().Set("Content-Type", "text/calendar")
			_, _ = w.Write([]byte(icsOneEvent))
		case "/outage.ics":
			w.WriteHeader(http.StatusInternalServerError)
		case "/private.ics":
			w.WriteHeader(http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	source := NewSource(server.Client())
	ctx := context.Background()

	t.Run("200 returns calendar", func(t *testing.T) {
		cal, err := source.GetCalendar(ctx, server.URL+"/cal.ics")
		require.NoError(t, err)
		require.NotNil(t, cal)
		assert.Len(t, GetEvents(cal, utc(2023, 4, 27, 17, 30)), 1)
	})

	t.Run("500 returns no calendar", func(t *testing.T) {
		cal, err := source.GetCalendar(ctx, server.URL+"/outage.ics")
		assert.NoError(t, err)
		assert.Nil(t, cal)
	})

	for _, path := range []string{"/missing.ics", "/private.ics"} {
		t.Run(path+" is an error", func(t *testing.T) {
			cal, err := source.GetCalendar(ctx, server.URL+path)
			require.Error(t, err)
			assert.Nil(t, cal)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.NotEqual(t, http.StatusOK, statusErr.StatusCode)
			assert.Contains(t, statusErr.Error(), path)
		})
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/cal.ics", "/outage.ics", "/missing.ics", "/private.ics"}, requested)
}

func TestGetCalendarUnsupportedScheme(t *testing.T) {
	_, err := NewSource(nil).GetCalendar(context.Background(), "ftp://example.com/cal.ics")
	assert.Error(t, err)
}
