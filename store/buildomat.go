package store

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/levigross/grequests"
)

// NewBuildomat returns a Client backed by a buildomat-style artifact store,
// which serves public build outputs at /public/file/<repo>/<commit>/<name>.
func NewBuildomat(baseURL string, timeout time.Duration) Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return buildomat{baseURL: baseURL, timeout: timeout}
}

type buildomat struct {
	baseURL string
	timeout time.Duration
}

func (b buildomat) fileURL(repo, commit, name string) string {
	return fmt.Sprintf("%s/public/file/%s/%s/%s", b.baseURL, repo, commit, name)
}

func (b buildomat) options() *grequests.RequestOptions {
	return &grequests.RequestOptions{
		RequestTimeout: b.timeout,
		Headers: map[string]string{
			"Accept": "application/octet-stream",
		},
	}
}

func (b buildomat) Head(repo, commit, name string) (int64, error) {
	url := b.fileURL(repo, commit, name)
	r, err := grequests.Head(url, grequests.FromRequestOptions(b.options()))
	if err != nil {
		return 0, ErrNetwork{URL: url, Cause: err}
	}
	defer func() { _ = r.Close() }()

	if r.StatusCode == 404 {
		return 0, ErrNotFound{Repo: repo, Commit: commit, Name: name}
	}

	if !r.Ok {
		return 0, fmt.Errorf("request failed with status %d", r.StatusCode)
	}

	return r.RawResponse.ContentLength, nil
}

func (b buildomat) Fetch(repo, commit, name string) (int64, io.ReadCloser, error) {
	url := b.fileURL(repo, commit, name)
	r, err := grequests.Get(url, grequests.FromRequestOptions(b.options()))
	if err != nil {
		return 0, nil, ErrNetwork{URL: url, Cause: err}
	}

	if r.StatusCode == 404 {
		_ = r.Close()
		return 0, nil, ErrNotFound{Repo: repo, Commit: commit, Name: name}
	}

	if !r.Ok {
		defer func() { _ = r.Close() }()
		return 0, nil, fmt.Errorf("request failed with status %d: %s", r.StatusCode, r.String())
	}

	return r.RawResponse.ContentLength, r, nil
}
