package repository

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stwalsh4118/michraz/internal/models"
)

//go:embed schemas/tenders.schema.json
var schemaFS embed.FS

const tendersSchemaPath = "schemas/tenders.schema.json"

var (
	tendersSchemaOnce sync.Once
	tendersSchema     *jsonschema.Schema
	tendersSchemaErr  error
)

func compiledTendersSchema() (*jsonschema.Schema, error) {
	tendersSchemaOnce.Do(func() {
		raw, err := schemaFS.ReadFile(tendersSchemaPath)
		if err != nil {
			tendersSchemaErr = fmt.Errorf("failed to read tender schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(tendersSchemaPath, bytes.NewReader(raw)); err != nil {
			tendersSchemaErr = fmt.Errorf("failed to add tender schema: %w", err)
			return
		}
		tendersSchema, tendersSchemaErr = compiler.Compile(tendersSchemaPath)
	})
	return tendersSchema, tendersSchemaErr
}

// TenderSource defines how the raw tender dataset is obtained.
type TenderSource interface {
	// Load returns every tender in the dataset in document order.
	// A document with the wrong shape fails with ErrInvalidDataset.
	Load(ctx context.Context) ([]models.RawTender, error)

	// Location describes where the dataset is read from.
	Location() string
}

// tenderSource reads the dataset from a file path or an http(s) URL.
type tenderSource struct {
	client   *http.Client
	location string
}

// NewTenderSource creates a TenderSource for location. A nil client uses
// DefaultHTTPClient for remote locations.
func NewTenderSource(location string, client *http.Client) TenderSource {
	if client == nil {
		client = DefaultHTTPClient
	}
	return &tenderSource{
		location: location,
		client:   client,
	}
}

// Load reads, validates and decodes the dataset.
func (s *tenderSource) Load(ctx context.Context) ([]models.RawTender, error) {
	data, err := readDocument(ctx, s.client, s.location)
	if err != nil {
		return nil, err
	}
	return DecodeTenders(data)
}

// Location returns the configured path or URL.
func (s *tenderSource) Location() string {
	return s.location
}

// DecodeTenders validates data against the tender schema and decodes it.
// The schema checks the document shape only; plot cells of any JSON type
// are accepted and non-string cells decode as empty.
func DecodeTenders(data []byte) ([]models.RawTender, error) {
	schema, err := compiledTendersSchema()
	if err != nil {
		return nil, err
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON: %v", ErrInvalidDataset, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}

	var tenders []models.RawTender
	if err := json.Unmarshal(data, &tenders); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	if tenders == nil {
		tenders = []models.RawTender{}
	}
	return tenders, nil
}
