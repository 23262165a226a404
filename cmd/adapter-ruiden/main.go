package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "config", os.Getenv("RUIDEN_CONFIG"), "YAML configuration file")
}

func main() {
	flag.Parse()

	handler, err := InitMainHandler(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("adapter init")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := handler.Handle(ctx); err != nil {
		handler.Logger.Fatal().Err(err).Msg("adapter stopped")
	}
}

func (h *MainHandler) Handle(ctx context.Context) error {
	defer h.close()

	if h.Config.Metrics.Listen != "" {
		srv := h.metricsServer()
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				h.Logger.Error().Err(err).Msg("metrics server")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		h.Logger.Info().Str("listen", h.Config.Metrics.Listen).Msg("metrics endpoint up")
	}

	if ident, err := h.Device.FetchInit(ctx); err != nil {
		h.Logger.Warn().Err(err).Msg("initial identity read failed")
	} else {
		h.Logger.Info().
			Uint16("id", ident.ID).
			Str("sn", ident.SN).
			Uint16("fw", ident.FW).
			Msg("device identified")
	}

	ticker := time.NewTicker(h.Config.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Logger.Info().Msg("shutting down")
			return nil
		case now := <-ticker.C:
			if _, err := PublishOnce(ctx, h, now); err != nil {
				h.Logger.Warn().Err(err).Msg("poll")
			}
		}
	}
}

func (h *MainHandler) metricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h.Metrics.Handler())
	return &http.Server{
		Addr:              h.Config.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (h *MainHandler) close() {
	if h.MQTTClient != nil {
		if err := h.MQTTClient.PublishEvent(offlineMessage(h)); err != nil {
			h.Logger.Debug().Err(err).Msg("offline publish")
		}
		_ = h.MQTTClient.Close(250)
	}
	if h.Recorder != nil {
		if err := h.Recorder.Close(); err != nil {
			h.Logger.Warn().Err(err).Msg("capture close")
		}
	}
	if err := h.Device.Close(); err != nil {
		h.Logger.Warn().Err(err).Msg("modbus client close")
	}
}
