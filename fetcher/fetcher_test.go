//go:build unit

package fetcher

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cocov-ci/prebuilt/mocks"
	"github.com/cocov-ci/prebuilt/store"
)

func makeFetcher(t *testing.T) (*mocks.MockClient, *Fetcher, string) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	tmpDir, err := os.MkdirTemp("", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	return client, New(client, zap.NewNop()), tmpDir
}

func body(data []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(data))
}

var spec = Spec{
	Name:   "npuzone",
	Repo:   "softnpu",
	Commit: "3203c51cf4473d30991b522062ac0042c5191ed7",
}

func TestEnsure(t *testing.T) {
	t.Run("downloads on cache miss", func(t *testing.T) {
		client, f, tmpDir := makeFetcher(t)
		data := []byte("elf contents")
		client.EXPECT().
			Fetch(spec.Repo, spec.Commit, spec.Name).
			Return(int64(len(data)), body(data), nil)

		destDir := filepath.Join(tmpDir, "out", "npuzone")
		path, err := f.Ensure(spec, destDir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(destDir, "npuzone"), path)

		written, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, data, written)
	})

	t.Run("second call is a cache hit", func(t *testing.T) {
		client, f, tmpDir := makeFetcher(t)
		data := []byte("elf contents")
		client.EXPECT().
			Fetch(spec.Repo, spec.Commit, spec.Name).
			Return(int64(len(data)), body(data), nil).
			Times(1)

		first, err := f.Ensure(spec, tmpDir)
		require.NoError(t, err)

		second, err := f.Ensure(spec, tmpDir)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("creates missing intermediate directories", func(t *testing.T) {
		client, f, tmpDir := makeFetcher(t)
		data := []byte("bin")
		client.EXPECT().
			Fetch(spec.Repo, spec.Commit, spec.Name).
			Return(int64(len(data)), body(data), nil)

		destDir := filepath.Join(tmpDir, "a", "b", "c")
		path, err := f.Ensure(spec, destDir)
		require.NoError(t, err)

		stat, err := os.Stat(path)
		require.NoError(t, err)
		assert.False(t, stat.IsDir())
	})

	t.Run("propagates not found", func(t *testing.T) {
		client, f, tmpDir := makeFetcher(t)
		client.EXPECT().
			Fetch(spec.Repo, spec.Commit, spec.Name).
			Return(int64(0), nil, store.ErrNotFound{Repo: spec.Repo, Commit: spec.Commit, Name: spec.Name})

		_, err := f.Ensure(spec, tmpDir)
		assert.True(t, store.IsNotFound(err))

		_, err = os.Stat(filepath.Join(tmpDir, spec.Name))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("removes partial file on stream failure", func(t *testing.T) {
		client, f, tmpDir := makeFetcher(t)
		client.EXPECT().
			Fetch(spec.Repo, spec.Commit, spec.Name).
			Return(int64(1024), io.NopCloser(io.MultiReader(
				bytes.NewReader([]byte("partial")),
				brokenReader{},
			)), nil)

		_, err := f.Ensure(spec, tmpDir)
		require.Error(t, err)

		_, err = os.Stat(filepath.Join(tmpDir, spec.Name))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("removes short download", func(t *testing.T) {
		client, f, tmpDir := makeFetcher(t)
		data := []byte("half")
		client.EXPECT().
			Fetch(spec.Repo, spec.Commit, spec.Name).
			Return(int64(len(data)*2), body(data), nil)

		_, err := f.Ensure(spec, tmpDir)
		require.ErrorContains(t, err, "short download")

		_, err = os.Stat(filepath.Join(tmpDir, spec.Name))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("rejects empty spec fields", func(t *testing.T) {
		_, f, tmpDir := makeFetcher(t)
		for _, s := range []Spec{
			{Repo: "r", Commit: "c"},
			{Name: "n", Commit: "c"},
			{Name: "n", Repo: "r"},
		} {
			_, err := f.Ensure(s, tmpDir)
			assert.ErrorContains(t, err, "must not be empty")
		}
	})

	t.Run("refuses concurrent fetch of the same artifact", func(t *testing.T) {
		_, f, tmpDir := makeFetcher(t)
		lockPath := filepath.Join(tmpDir, "."+spec.Name+".lock")
		require.NoError(t, os.WriteFile(lockPath, nil, 0644))

		_, err := f.Ensure(spec, tmpDir)
		assert.ErrorContains(t, err, "another fetch is in progress")
	})
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("connection reset by peer")
}

func TestMarkExecutable(t *testing.T) {
	t.Run("marks a fetched binary as runnable", func(t *testing.T) {
		tmpDir, err := os.MkdirTemp("", "")
		require.NoError(t, err)
		t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

		p := filepath.Join(tmpDir, "tool")
		require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"), 0644))

		require.NoError(t, MarkExecutable(p))

		stat, err := os.Stat(p)
		require.NoError(t, err)
		assert.NotZero(t, stat.Mode().Perm()&0111)
	})

	t.Run("fails for a missing path", func(t *testing.T) {
		err := MarkExecutable("/nonexistent/tool")
		assert.True(t, os.IsNotExist(err))
	})
}
