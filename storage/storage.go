package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Meta describes a stored artifact. It lives in a sidecar file next to the
// artifact itself, named after it with a .meta suffix.
type Meta struct {
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size,omitempty"`
	Mime      string    `json:"mime,omitempty"`
}

func ensureDir(at string) error {
	retrying := false
	for {
		stat, err := os.Stat(at)
		if os.IsNotExist(err) && !retrying {
			if err = os.MkdirAll(at, 0755); err != nil {
				return fmt.Errorf("mkdir_p %s: %w", at, err)
			}
			retrying = true
			continue
		} else if err != nil {
			return err
		}

		if stat.IsDir() {
			return nil
		}

		return fmt.Errorf("%s: exists and is not a directory", at)
	}
}

// New returns a Store rooted at basePath, laying artifacts out as
// <basePath>/<repo>/<commit>/<name>. basePath is created if absent.
func New(basePath string) (*Store, error) {
	basePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}

	if err = ensureDir(basePath); err != nil {
		return nil, err
	}

	return &Store{basePath: basePath}, nil
}

type Store struct {
	basePath string
}

func validComponent(c string) bool {
	if c == "" || c == "." || c == ".." {
		return false
	}
	return !strings.ContainsAny(c, "/\\")
}

func (s *Store) pathOf(repo, commit, name string) (string, error) {
	for _, c := range []string{repo, commit, name} {
		if !validComponent(c) {
			return "", fmt.Errorf("invalid path component %q", c)
		}
	}

	return filepath.Join(s.basePath, repo, commit, name), nil
}

func burninate(path string) {
	_ = os.Remove(path + ".meta")
	_ = os.Remove(path)
}

// ensureConsistencyOf returns the metadata for the artifact at path,
// removing whatever half-written state is found when the artifact and its
// sidecar disagree.
func ensureConsistencyOf(path string) (*Meta, error) {
	metaFilePath := path + ".meta"
	if _, err := os.Stat(metaFilePath); os.IsNotExist(err) {
		_ = os.Remove(path)
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		burninate(path)
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	f, err := os.Open(metaFilePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var meta Meta
	if err = json.NewDecoder(f).Decode(&meta); err != nil {
		burninate(path)
		return nil, nil
	}

	return &meta, nil
}

func writeMeta(target string, meta *Meta) error {
	m, err := os.OpenFile(target+".meta", os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	if err = json.NewEncoder(m).Encode(meta); err != nil {
		return err
	}

	return m.Sync()
}

func (s *Store) MetadataOf(repo, commit, name string) (*Meta, error) {
	p, err := s.pathOf(repo, commit, name)
	if err != nil {
		return nil, err
	}

	meta, err := ensureConsistencyOf(p)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrNotExist{path: p}
	}

	return meta, nil
}

func (s *Store) Get(repo, commit, name string) (*Meta, io.ReadCloser, error) {
	meta, err := s.MetadataOf(repo, commit, name)
	if err != nil {
		return nil, nil, err
	}

	p, err := s.pathOf(repo, commit, name)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, nil, err
	}

	return meta, f, nil
}

func (s *Store) Put(repo, commit, name, mime string, stream io.Reader) error {
	target, err := s.pathOf(repo, commit, name)
	if err != nil {
		return err
	}

	if err = ensureDir(filepath.Dir(target)); err != nil {
		return err
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	written, err := io.Copy(f, stream)
	if err != nil {
		burninate(target)
		return err
	}

	if err = f.Sync(); err != nil {
		burninate(target)
		return err
	}

	meta := Meta{
		CreatedAt: time.Now().UTC(),
		Size:      written,
		Mime:      mime,
	}
	if err = writeMeta(target, &meta); err != nil {
		burninate(target)
		return err
	}

	return nil
}

func (s *Store) Delete(repo, commit, name string) error {
	p, err := s.pathOf(repo, commit, name)
	if err != nil {
		return err
	}

	if _, err = s.MetadataOf(repo, commit, name); err != nil {
		return err
	}

	burninate(p)
	return nil
}
