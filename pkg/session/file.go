package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	recordExt = ".json"
	tmpPrefix = ".tmp-"
)

// FileStore keeps one JSON record per session in a directory, named
// <id>.json. Writes go through a temporary file and a rename, so a crash
// never leaves a half-written record behind.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore opens (and creates, if needed) a store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("session dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the directory holding the records.
func (s *FileStore) Path() string { return s.dir }

func (s *FileStore) recordPath(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, id+recordExt), nil
}

func readRecord(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &sess, nil
}

// Get returns nil, nil for unknown, expired and malformed IDs.
func (s *FileStore) Get(_ context.Context, id string) (*Session, error) {
	path, err := s.recordPath(id)
	if err != nil {
		return nil, nil
	}

	s.mu.RLock()
	sess, err := readRecord(path)
	s.mu.RUnlock()

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, err
	case sess.IsExpired():
		return nil, nil
	}
	return sess, nil
}

func (s *FileStore) Set(_ context.Context, sess *Session) error {
	path, err := s.recordPath(sess.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.CreateTemp(s.dir, tmpPrefix+sess.ID+"-*")
	if err != nil {
		return fmt.Errorf("write session %s: %w", sess.ID, err)
	}
	tmp := f.Name()
	_, werr := f.Write(data)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(tmp)
		return fmt.Errorf("write session %s: %w", sess.ID, werr)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	path, err := s.recordPath(id)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Cleanup deletes expired records, records that no longer decode, and
// temporary files left by interrupted writes.
func (s *FileStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read session dir: %w", err)
	}

	cutoff := time.Now()
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := e.Name()
		path := filepath.Join(s.dir, name)
		switch {
		case e.IsDir():
		case strings.HasPrefix(name, tmpPrefix):
			if info, err := e.Info(); err == nil && cutoff.Sub(info.ModTime()) > time.Minute {
				os.Remove(path)
			}
		case filepath.Ext(name) == recordExt:
			sess, err := readRecord(path)
			if err != nil || cutoff.After(sess.ExpiresAt) {
				os.Remove(path)
			}
		}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
