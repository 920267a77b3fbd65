package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cocov-ci/prebuilt/logging"
	"github.com/cocov-ci/prebuilt/storage"
)

type params struct {
	repo   string
	commit string
	name   string
}

func loadParams(r *http.Request) (params, bool) {
	p := params{
		repo:   chi.URLParam(r, "repo"),
		commit: chi.URLParam(r, "commit"),
		name:   chi.URLParam(r, "name"),
	}

	return p, p.repo != "" && p.commit != "" && p.name != ""
}

func (s *Server) HandleGet(w http.ResponseWriter, r *http.Request) {
	log := logging.GetLogger(r)

	p, ok := loadParams(r)
	if !ok {
		log.Error("Rejecting request lacking repo, commit, or name")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Missing repo, commit, or name"))
		return
	}

	meta, reader, err := s.Storage.Get(p.repo, p.commit, p.name)
	if err != nil {
		if _, notExist := err.(storage.ErrNotExist); notExist {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("Not found"))
			return
		}

		log.Error("Rejecting request due to storage failure", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	defer func() { _ = reader.Close() }()

	mime := meta.Mime
	if mime == "" {
		mime = "application/octet-stream"
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", meta.Size))

	if _, err = io.Copy(w, reader); err != nil {
		log.Error("Failed transferring data to peer", zap.Error(err))
	}
}

func (s *Server) HandleHead(w http.ResponseWriter, r *http.Request) {
	log := logging.GetLogger(r)

	p, ok := loadParams(r)
	if !ok {
		log.Error("Rejecting request lacking repo, commit, or name")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	meta, err := s.Storage.MetadataOf(p.repo, p.commit, p.name)
	if err != nil {
		if _, notExist := err.(storage.ErrNotExist); notExist {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		log.Error("Rejecting request due to storage failure", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	mime := meta.Mime
	if mime == "" {
		mime = "application/octet-stream"
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", meta.Size))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) HandleSet(w http.ResponseWriter, r *http.Request) {
	log := logging.GetLogger(r)

	p, ok := loadParams(r)
	if !ok {
		log.Error("Rejecting request lacking repo, commit, or name")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Missing repo, commit, or name"))
		return
	}

	if s.MaxArtifactSize > 0 && r.ContentLength > s.MaxArtifactSize {
		log.Error("Rejecting request for exceeding the maximum artifact size",
			zap.Int64("content_length", r.ContentLength),
			zap.Int64("max_artifact_size", s.MaxArtifactSize))
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte("Artifact too large"))
		return
	}

	body := r.Body
	if s.MaxArtifactSize > 0 {
		body = http.MaxBytesReader(w, body, s.MaxArtifactSize)
	}

	if err := s.Storage.Put(p.repo, p.commit, p.name, r.Header.Get("Content-Type"), body); err != nil {
		log.Error("Rejecting request due to storage failure", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.WriteHeader(http.StatusCreated)
}
