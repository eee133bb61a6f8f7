package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/stwalsh4118/michraz/internal/models"
)

// SheetSource defines how the published tender sheets are obtained.
type SheetSource interface {
	// Load returns the sheets in the order they appear in the feed.
	Load(ctx context.Context) ([]models.SheetTender, error)
}

type sheetSource struct {
	client *http.Client
	url    string
}

// NewSheetSource creates a SheetSource reading the feed at url. A file path
// works too. A nil client uses DefaultHTTPClient.
func NewSheetSource(url string, client *http.Client) SheetSource {
	if client == nil {
		client = DefaultHTTPClient
	}
	return &sheetSource{url: url, client: client}
}

// Load fetches and decodes the feed.
func (s *sheetSource) Load(ctx context.Context) ([]models.SheetTender, error) {
	data, err := readDocument(ctx, s.client, s.url)
	if err != nil {
		return nil, err
	}
	return DecodeSheets(data)
}

// DecodeSheets decodes a feed document: a JSON object keyed by sheet name.
// Values are returned in document order; keys are discarded.
func DecodeSheets(data []byte) ([]models.SheetTender, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: sheets feed must be a JSON object", ErrInvalidDataset)
	}

	sheets := []models.SheetTender{}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
		}

		var sheet models.SheetTender
		if err := json.Unmarshal(raw, &sheet); err != nil {
			// Non-object entries (scalars, arrays) are skipped like empty sheets.
			continue
		}
		sheets = append(sheets, sheet)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	return sheets, nil
}
