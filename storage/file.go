package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileKV keeps all keys in a single JSON object file.
// Every write rewrites the file through a temp file and rename.
type FileKV struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

var errCorrupt = errors.New("corrupt store file")

// NewFileKV creates a file-backed store; the file is created on first write
func NewFileKV(path string, logger *slog.Logger) (*FileKV, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory: %w", ErrStorageFailure, err)
	}
	return &FileKV{path: path, logger: logger.With("component", "storage")}, nil
}

func (f *FileKV) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

func (f *FileKV) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, _, err := f.readForWrite()
	if err != nil {
		return err
	}
	data[key] = value
	return f.write(data)
}

func (f *FileKV) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, recovered, err := f.readForWrite()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok && !recovered {
		return nil
	}
	delete(data, key)
	return f.write(data)
}

func (f *FileKV) Close() error { return nil }

// read loads the whole file; a missing file is an empty store
func (f *FileKV) read() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStorageFailure, f.path, err)
	}

	data := make(map[string]string)
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %w: decode %s: %w", ErrStorageFailure, errCorrupt, f.path, err)
	}
	return data, nil
}

// readForWrite is read, except that a corrupt file is replaced on the
// next write instead of blocking every write
func (f *FileKV) readForWrite() (data map[string]string, recovered bool, err error) {
	data, err = f.read()
	if errors.Is(err, errCorrupt) {
		f.logger.Warn("discarding corrupt store file", "path", f.path, "error", err)
		return make(map[string]string), true, nil
	}
	return data, false, err
}

func (f *FileKV) write(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrStorageFailure, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".kv-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrStorageFailure, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write temp file: %w", ErrStorageFailure, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %w", ErrStorageFailure, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("%w: replace %s: %w", ErrStorageFailure, f.path, err)
	}
	return nil
}

var _ KV = (*FileKV)(nil)
