package iostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
)

// ImportFile is the document accepted by ExecuteImport.
type ImportFile struct {
	Events       []schema.RawEvent    `json:"events"`
	Sprints      []schema.Sprint      `json:"sprints"`
	Integrations []schema.Integration `json:"integrations"`
}

// ImportSummary counts the rows written by one import.
type ImportSummary struct {
	Events       int `json:"events"`
	Sprints      int `json:"sprints"`
	Integrations int `json:"integrations"`
}

// ReadImportFile decodes an import document, rejecting unknown fields.
func ReadImportFile(path string) (ImportFile, error) {
	var doc ImportFile
	f, err := os.Open(path)
	if err != nil {
		return doc, fmt.Errorf("failed to open import file: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return doc, fmt.Errorf("failed to decode import file %s: %w", path, err)
	}
	return doc, nil
}

// ExecuteImport upserts the events, sprints and integrations of an import file.
func ExecuteImport(ctx context.Context, store contract.EventStore, path string) (ImportSummary, error) {
	var summary ImportSummary
	if path == "" {
		return summary, errors.New("--file is required for import command")
	}
	if store == nil {
		return summary, errors.New("event store is not initialized")
	}

	doc, err := ReadImportFile(path)
	if err != nil {
		return summary, err
	}

	// Integrations and sprints first so a partial import still leaves events resolvable
	if summary.Integrations, err = store.ImportIntegrations(ctx, doc.Integrations); err != nil {
		return summary, fmt.Errorf("failed to import integrations: %w", err)
	}
	if summary.Sprints, err = store.ImportSprints(ctx, doc.Sprints); err != nil {
		return summary, fmt.Errorf("failed to import sprints: %w", err)
	}
	if summary.Events, err = store.ImportEvents(ctx, doc.Events); err != nil {
		return summary, fmt.Errorf("failed to import events: %w", err)
	}
	return summary, nil
}
