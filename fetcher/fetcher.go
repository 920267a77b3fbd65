package fetcher

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cocov-ci/prebuilt/store"
)

// Spec identifies exactly one immutable build artifact. Commit is a pinned
// revision hash; repo and commit are treated as opaque identifiers.
type Spec struct {
	Name   string
	Repo   string
	Commit string
}

func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("artifact name must not be empty")
	}
	if s.Repo == "" {
		return fmt.Errorf("artifact repo must not be empty")
	}
	if s.Commit == "" {
		return fmt.Errorf("artifact commit must not be empty")
	}
	return nil
}

func New(client store.Client, log *zap.Logger) *Fetcher {
	return &Fetcher{store: client, log: log}
}

type Fetcher struct {
	store store.Client
	log   *zap.Logger
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

func discard(path string) {
	_ = os.Remove(path)
}

// acquireLock takes an exclusive lock file inside dir so two identical
// fetches cannot interleave writes to the same target. Held locks fail the
// second caller immediately instead of blocking; retry policy belongs to
// whoever drives the fetch.
func acquireLock(dir, name string) (func(), error) {
	p := filepath.Join(dir, "."+name+".lock")
	fd, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if os.IsExist(err) {
		return nil, fmt.Errorf("%s: another fetch is in progress (remove %s if stale)", name, p)
	} else if err != nil {
		return nil, fmt.Errorf("creating lock file %s: %w", p, err)
	}
	_ = fd.Close()

	return func() { _ = os.Remove(p) }, nil
}

// Ensure materializes the artifact identified by spec under destDir,
// returning the path it lives at. The presence of a file with the
// artifact's name is the sole cache signal: when it exists, Ensure returns
// without touching the network. destDir is created along with any missing
// parents. A failed download never leaves a partial file behind.
func (f *Fetcher) Ensure(spec Spec, destDir string) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	destDir, err := filepath.Abs(destDir)
	if err != nil {
		return "", err
	}
	target := filepath.Join(destDir, spec.Name)

	if _, err = os.Stat(target); err == nil {
		f.log.Info("Artifact already present", zap.String("path", target))
		return target, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat %s: %w", target, err)
	}

	if err = ensureDir(destDir); err != nil {
		return "", err
	}

	unlock, err := acquireLock(destDir, spec.Name)
	if err != nil {
		return "", err
	}
	defer unlock()

	// A concurrent fetch may have finished between the stat above and the
	// lock acquisition.
	if _, err = os.Stat(target); err == nil {
		return target, nil
	}

	f.log.Info("Fetching artifact",
		zap.String("name", spec.Name),
		zap.String("repo", spec.Repo),
		zap.String("commit", spec.Commit))

	size, stream, err := f.store.Fetch(spec.Repo, spec.Commit, spec.Name)
	if err != nil {
		return "", err
	}
	defer func() { _ = stream.Close() }()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", target, err)
	}
	defer func() { _ = out.Close() }()

	written, err := io.Copy(out, stream)
	if err != nil {
		discard(target)
		return "", fmt.Errorf("writing %s: %w", target, err)
	}

	if err = out.Sync(); err != nil {
		discard(target)
		return "", fmt.Errorf("syncing %s: %w", target, err)
	}

	if size >= 0 && written != size {
		discard(target)
		return "", fmt.Errorf("short download for %s: got %d bytes, expected %d", spec.Name, written, size)
	}

	f.log.Info("Artifact downloaded",
		zap.String("path", target),
		zap.Int64("size_bytes", written))

	return target, nil
}

// MarkExecutable sets the permission bits required to run path as a
// program, preserving its other permissions.
func MarkExecutable(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return err
	}

	return os.Chmod(path, stat.Mode().Perm()|0755)
}
