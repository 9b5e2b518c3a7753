// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

// File keeps every preference in one JSON document. Each Save rewrites
// the document atomically.
type File struct {
	path string

	mu     sync.Mutex
	values map[string]json.RawMessage
}

// NewFile loads path if it exists. A missing file is an empty store.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	f := &File{path: path, values: make(map[string]json.RawMessage)}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &f.values); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return f, nil
}

func (f *File) Save(_ context.Context, key string, value any) error {
	data, err := encode(key, value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.values[key]
	f.values[key] = data
	if err := f.flush(); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

func (f *File) Restore(_ context.Context, key string, dst any) error {
	f.mu.Lock()
	data, ok := f.values[key]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return decode(key, data, dst)
}

func (f *File) Close() error { return nil }

// flush writes the document through a pending file so readers never see a
// partial write.
func (f *File) flush() error {
	doc, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("create dir for %s: %w", f.path, err)
	}
	pending, err := renameio.NewPendingFile(f.path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending %s: %w", f.path, err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(append(doc, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
