package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// maxDocumentSize caps a dataset document read from disk or network.
const maxDocumentSize = 64 << 20

var (
	// ErrSourceUnavailable means the dataset could not be read at all.
	ErrSourceUnavailable = errors.New("dataset source unavailable")
	// ErrInvalidDataset means the document was read but has the wrong shape.
	ErrInvalidDataset = errors.New("dataset has an invalid shape")
)

// DefaultHTTPClient is used by sources created without a client.
var DefaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

// isRemote reports whether location is an http(s) URL rather than a path.
func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// readDocument returns the bytes at location, a file path or an http(s) URL.
func readDocument(ctx context.Context, client *http.Client, location string) ([]byte, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: no location configured", ErrSourceUnavailable)
	}
	if !isRemote(location) {
		return readFile(location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s returned status %d", ErrSourceUnavailable, location, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrSourceUnavailable, location, err)
	}
	return data, nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrSourceUnavailable, path, err)
	}
	return data, nil
}
