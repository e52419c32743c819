// Package feed retrieves and parses external booking calendar feeds.
package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SourceError tags a fetch failure with the feed source so the orchestrator
// can report it without aborting the property.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one feed fetch.
type Result struct {
	Body []byte
	Hash string
	// Unchanged is set when the content hash matches the previously stored
	// one; the sync run may short-circuit for this feed.
	Unchanged bool
}

// Fetcher retrieves raw calendar text over HTTP. Requests use a short
// timeout and are never retried here; a failed fetch skips the source until
// the next scheduled run.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a feed fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads a feed and computes its content hash. When prevHash is
// non-empty and matches, Result.Unchanged is set and Body is still returned
// so callers that ignore the optimization stay correct.
func (f *Fetcher) Fetch(ctx context.Context, source, url, prevHash string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &SourceError{Source: source, Err: fmt.Errorf("building request: %w", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &SourceError{Source: source, Err: fmt.Errorf("fetching feed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &SourceError{Source: source, Err: fmt.Errorf("feed returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SourceError{Source: source, Err: fmt.Errorf("reading feed body: %w", err)}
	}

	hash := ContentHash(body)

	return &Result{
		Body:      body,
		Hash:      hash,
		Unchanged: prevHash != "" && prevHash == hash,
	}, nil
}

// ContentHash computes a stable hash of a feed body. Line endings and
// trailing whitespace are normalized first so servers that flip between
// CRLF and LF do not defeat change detection.
func ContentHash(body []byte) string {
	normalized := strings.ReplaceAll(string(body), "\r\n", "\n")
	normalized = strings.TrimSpace(normalized)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
