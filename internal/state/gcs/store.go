// Package gcs persists the state record as a single GCS object, using the
// object generation as the optimistic-concurrency token.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/awbwtools/turn-sentinel/internal/state"
)

// Config captures the parameters required to locate the state object.
type Config struct {
	Bucket string
	Object string
}

// Store reads and conditionally writes the state object in GCS. Object
// replacement is atomic, so readers never observe a partial record.
type Store struct {
	client *storage.Client
	bucket string
	object string
}

// New creates a GCS-backed state store.
func New(client *storage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.Object == "" {
		return nil, fmt.Errorf("object name is required")
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		object: cfg.Object,
	}, nil
}

// Load reads the state object and returns its content plus generation.
// A missing object maps to state.ErrNotFound.
func (s *Store) Load(ctx context.Context) (state.State, int64, error) {
	reader, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return state.State{}, 0, state.ErrNotFound
	}
	if err != nil {
		return state.State{}, 0, fmt.Errorf("open state object: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return state.State{}, 0, fmt.Errorf("read state object: %w", err)
	}
	var st state.State
	if err := json.Unmarshal(data, &st); err != nil {
		return state.State{}, 0, fmt.Errorf("decode state object: %w", err)
	}
	return st, reader.Attrs.Generation, nil
}

// Save writes the record conditioned on the generation observed at Load.
// expected 0 requires that the object does not exist yet. A precondition
// failure maps to state.ErrVersionConflict.
func (s *Store) Save(ctx context.Context, st state.State, expected int64) (int64, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return 0, fmt.Errorf("encode state: %w", err)
	}

	conds := storage.Conditions{GenerationMatch: expected}
	if expected == 0 {
		conds = storage.Conditions{DoesNotExist: true}
	}
	writer := s.client.Bucket(s.bucket).Object(s.object).If(conds).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return 0, fmt.Errorf("write state object: %w (close writer: %v)", err, closeErr)
		}
		return 0, fmt.Errorf("write state object: %w", err)
	}
	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			return 0, state.ErrVersionConflict
		}
		return 0, fmt.Errorf("close state writer: %w", err)
	}
	return writer.Attrs().Generation, nil
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}
