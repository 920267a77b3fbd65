package server

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cocov-ci/prebuilt/logging"
	"github.com/cocov-ci/prebuilt/storage"
)

type Config struct {
	Logger          *zap.Logger
	StoragePath     string
	BindAddress     string
	MaxArtifactSize int64
}

func (c *Config) MakeServer() (*Server, error) {
	st, err := storage.New(c.StoragePath)
	if err != nil {
		c.Logger.Error("Storage initialization failed", zap.Error(err))
		return nil, err
	}

	c.Logger.Info("Storage initialization succeeded",
		zap.String("storage_path", c.StoragePath))

	return &Server{
		Logger:          c.Logger,
		Storage:         st,
		MaxArtifactSize: c.MaxArtifactSize,
	}, nil
}

// Server exposes a local artifact tree through the same URL contract the
// buildomat store client consumes, so mirrored artifacts can be served to
// hosts without access to the upstream store.
type Server struct {
	Logger          *zap.Logger
	Storage         *storage.Store
	MaxArtifactSize int64
}

func (s *Server) MakeMux() *chi.Mux {
	r := chi.NewRouter()
	r.Use(logging.RequestLogger(s.Logger))

	r.Get("/public/file/{repo}/{commit}/{name}", s.HandleGet)
	r.Head("/public/file/{repo}/{commit}/{name}", s.HandleHead)
	r.Post("/public/file/{repo}/{commit}/{name}", s.HandleSet)

	return r
}
