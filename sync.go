package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Blob is a single remote document, read and replaced as a whole.
//
// Get returns ErrNotFound when there is no document yet. Implementations
// report transport failures as ErrRemoteUnreachable and refusals from the
// store as ErrRemoteRejected.
type Blob interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, data []byte) error
}

// Remote synchronizes documents with a Blob.
type Remote struct {
	Blob    Blob
	Log     zerolog.Logger
	Metrics *Metrics
}

// Load fetches and decodes the remote document.
//
// The returned Document is always usable: when the document is absent,
// unreadable or malformed it is the empty default document, and the error
// tells why. Legacy documents are migrated in memory only.
func (r *Remote) Load(ctx context.Context) (Document, error) {
	log := r.Log.With().Str("component", "sync").Logger()
	raw, err := r.Blob.Get(ctx)
	if err != nil {
		r.Metrics.sync("load", "degraded")
		if errors.Is(err, ErrNotFound) {
			log.Info().Msg("no remote document yet, starting empty")
		} else {
			log.Warn().Err(err).Msg("remote document unavailable, starting empty")
		}
		return EmptyDocument(), err
	}
	doc, shape, err := DecodeDocument(raw)
	if err != nil {
		r.Metrics.sync("load", "degraded")
		log.Warn().Err(err).Msg("remote document malformed, starting empty")
		return doc, err
	}
	if shape == ShapeLegacy {
		log.Info().Int("holdings", len(doc.Profiles[DefaultProfile])).Msg("migrated legacy document into the Default profile")
	}
	r.Metrics.sync("load", "ok")
	return doc, nil
}

// Save replaces the remote document with doc, all profiles included.
func (r *Remote) Save(ctx context.Context, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		r.Metrics.sync("save", "failed")
		return fmt.Errorf("encoding document: %w", err)
	}
	if err := r.Blob.Put(ctx, data); err != nil {
		r.Metrics.sync("save", "failed")
		return err
	}
	r.Metrics.sync("save", "ok")
	return nil
}

// FileBlob stores the document in a local file.
type FileBlob struct {
	Path string
}

func (f FileBlob) Get(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, f.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnreachable, err)
	}
	return data, nil
}

// Put writes the document to a temporary file and renames it over Path, so
// that a failed write leaves the previous document intact.
func (f FileBlob) Put(ctx context.Context, data []byte) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnreachable, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnreachable, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrRemoteUnreachable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnreachable, err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnreachable, err)
	}
	return nil
}

// MemoryBlob keeps the document in memory. It is safe for concurrent use.
type MemoryBlob struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryBlob returns a blob holding data, or no document if data is nil.
func NewMemoryBlob(data []byte) *MemoryBlob {
	return &MemoryBlob{data: bytes.Clone(data)}
}

func (m *MemoryBlob) Get(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, ErrNotFound
	}
	return bytes.Clone(m.data), nil
}

func (m *MemoryBlob) Put(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = bytes.Clone(data)
	return nil
}
