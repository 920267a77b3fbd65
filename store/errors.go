package store

import "fmt"

type ErrNotFound struct {
	Repo   string
	Commit string
	Name   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("no artifact %s for %s@%s", e.Name, e.Repo, e.Commit)
}

func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(ErrNotFound)
	return ok
}

type ErrNetwork struct {
	URL   string
	Cause error
}

func (e ErrNetwork) Error() string {
	return fmt.Sprintf("fetching %s: %s", e.URL, e.Cause)
}

func (e ErrNetwork) Unwrap() error { return e.Cause }
