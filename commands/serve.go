package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/cocov-ci/prebuilt/logging"
	"github.com/cocov-ci/prebuilt/server"
)

func Serve(ctx *cli.Context) error {
	isDevelopment := os.Getenv("PREBUILT_DEV") == "true"
	logger, err := logging.InitializeLogger(isDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	conf := &server.Config{
		Logger:          logger,
		StoragePath:     ctx.String("storage-path"),
		BindAddress:     ctx.String("bind-address"),
		MaxArtifactSize: ctx.Int64("max-artifact-size-bytes"),
	}

	srv, err := conf.MakeServer()
	if err != nil {
		logger.Error("Failed creating server from configuration", zap.Error(err))
		return err
	}

	httpServer := http.Server{
		Addr:    conf.BindAddress,
		Handler: srv.MakeMux(),
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)
	shutdown := make(chan bool)
	go func() {
		<-signalChan
		logger.Info("Received interrupt signal. Gracefully stopping...")
		if err := httpServer.Shutdown(context.Background()); err != nil {
			logger.Error("Failed requesting HTTP server shutdown", zap.Error(err))
		}
		logger.Info("HTTP server stopped")
		close(shutdown)
	}()

	logger.Info("Starting HTTP server", zap.String("bind_address", conf.BindAddress))
	if err = httpServer.ListenAndServe(); err != nil {
		<-shutdown
		if err != http.ErrServerClosed {
			return err
		}
	}
	<-shutdown

	logger.Info("Bye!")
	return nil
}
