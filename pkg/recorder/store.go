package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Store errors.
var (
	ErrNotFound   = errors.New("recorder: recording not found")
	ErrInvalidKey = errors.New("recorder: invalid recording key")
)

// Meta describes one stored recording.
type Meta struct {
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Frames    int       `json:"frames"`
	Bytes     int       `json:"bytes"`
	// Truncated is set when the session outgrew the recorder's size limit.
	Truncated bool `json:"truncated"`
}

// Store persists finished recordings.
type Store interface {
	Put(ctx context.Context, key string, data []byte, meta Meta) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context) ([]string, error)
}

// DiskStore keeps recordings as files in a directory, each with a JSON
// metadata sidecar.
type DiskStore struct {
	dir string
}

// NewDiskStore creates dir if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir}, nil
}

const metaSuffix = ".meta.json"

func validKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, `/\`) && key != "." && key != ".." &&
		!strings.HasSuffix(key, metaSuffix)
}

// Put writes data under key, replacing an existing recording.
func (s *DiskStore) Put(_ context.Context, key string, data []byte, meta Meta) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	path := filepath.Join(s.dir, key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	m, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path+metaSuffix, m, 0o644)
}

// Get opens the recording stored under key.
func (s *DiskStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, ErrInvalidKey
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Meta reads the metadata sidecar of key.
func (s *DiskStore) Meta(key string) (Meta, error) {
	var m Meta
	if !validKey(key) {
		return m, ErrInvalidKey
	}
	data, err := os.ReadFile(filepath.Join(s.dir, key+metaSuffix))
	if errors.Is(err, os.ErrNotExist) {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(data, &m)
	return m, err
}

// List returns the stored keys in lexical order.
func (s *DiskStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, metaSuffix) || strings.HasSuffix(name, ".tmp") {
			continue
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys, nil
}

// Cleanup removes recordings older than maxAge.
func (s *DiskStore) Cleanup(maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(s.dir, e.Name()))
		}
	}
	return nil
}
