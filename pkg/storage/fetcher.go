package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SheetFetcher retrieves raw sheet bytes from a remote location so batch
// runs can point at scanner upload URLs directly.
type SheetFetcher interface {
	FetchSheet(ctx context.Context, url string) ([]byte, error)
}

// HTTPSheetFetcher implements SheetFetcher over plain HTTP(S) with
// bounded retries.
type HTTPSheetFetcher struct {
	client *http.Client
}

// NewHTTPSheetFetcher creates a fetcher tuned for one-shot scan downloads.
func NewHTTPSheetFetcher() *HTTPSheetFetcher {
	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPSheetFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

// FetchSheet downloads the sheet bytes, retrying transient failures up to
// three attempts. 4xx responses fail immediately.
func (h *HTTPSheetFetcher) FetchSheet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/tiff, application/pdf, */*")
	req.Header.Set("User-Agent", "Go-OMR-Engine/1.0")

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			data, readErr := func() ([]byte, error) {
				defer resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return io.ReadAll(resp.Body)
				}
				return nil, fmt.Errorf("status code %d", resp.StatusCode)
			}()
			if readErr == nil {
				return data, nil
			}
			lastErr = readErr
			// Client errors are not retryable.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				break
			}
		}

		if attempt < 2 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}
	return nil, fmt.Errorf("failed to fetch sheet after retries: %w", lastErr)
}
