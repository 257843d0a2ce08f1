package calendar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"k8s.io/klog/v2"
)

// StatusError is returned when a calendar URL answers with an unexpected status
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("calendar request to %s failed: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Source fetches ICS calendars from disk or over HTTP
type Source struct {
	client *http.Client
}

// NewSource creates a calendar source. A nil client uses a client with a 30s timeout.
func NewSource(client *http.Client) *Source {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Source{client: client}
}

// GetCalendar loads the calendar at location, a file path, file:// URL or
// http(s):// URL. A 500 answer yields a nil calendar and no error; any other
// non-200 answer yields a *StatusError.
func (s *Source) GetCalendar(ctx context.Context, location string) (*Calendar, error) {
	scheme, rest, hasScheme := strings.Cut(location, "://")
	if !hasScheme {
		return readFile(location)
	}

	switch strings.ToLower(scheme) {
	case "file":
		return readFile(rest)
	case "webcal":
		return s.fetch(ctx, "https://"+rest)
	case "http", "https":
		return s.fetch(ctx, location)
	default:
		return nil, fmt.Errorf("unsupported calendar location scheme %q", scheme)
	}
}

func readFile(path string) (*Calendar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open calendar: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

func (s *Source) fetch(ctx context.Context, url string) (*Calendar, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build calendar request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read calendar body: %w", err)
		}
		return Parse(bytes.NewReader(body))
	case http.StatusInternalServerError:
		klog.InfoS("Calendar source returned 500, continuing without calendar", "url", url)
		return nil, nil
	default:
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
}
