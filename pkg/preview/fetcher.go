package preview

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Fetcher materializes the source object onto local storage through a signed
// URL. A single GET, no retries: the credential is short-lived and a second
// attempt should go through a fresh one instead of replaying this URL past
// its validity window.
type Fetcher struct {
	client *http.Client
}

func NewFetcher() *Fetcher {
	client := &http.Client{
		Transport: &http.Transport{
			IdleConnTimeout: 10 * time.Second,
		},
	}

	return &Fetcher{client: client}
}

func (f *Fetcher) Fetch(ctx context.Context, signedURL string, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return fmt.Errorf("error creating fetch request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("error fetching source object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("source fetch returned status %d", resp.StatusCode)
	}

	buf := &bytes.Buffer{}
	_, err = buf.ReadFrom(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading source object body: %w", err)
	}

	err = os.WriteFile(destPath, buf.Bytes(), 0o644)
	if err != nil {
		return fmt.Errorf("error writing source object to workspace: %w", err)
	}

	return nil
}
