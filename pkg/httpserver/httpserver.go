// Package httpserver exposes the management endpoints of a collector.
package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/netsampler/trustflow/pkg/collector"
	"github.com/netsampler/trustflow/utils/templates"
)

// Config configures the HTTP server.
type Config struct {
	Addr         string
	TemplatePath string
	Logger       logrus.FieldLogger
}

// Source is the collector state rendered by the endpoints.
type Source interface {
	Collecting() bool
	Target() string
	Stats() collector.Stats
	Templates() *templates.Registry
}

type health struct {
	Status     string `json:"status"`
	Collecting bool   `json:"collecting"`
	Backend    string `json:"backend"`
}

func writeJSON(logger logrus.FieldLogger, wr http.ResponseWriter, status int, value interface{}) {
	body, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		logger.WithError(err).Error("error writing JSON body")
		wr.WriteHeader(http.StatusInternalServerError)
		if _, err := wr.Write([]byte("Internal Server Error\n")); err != nil {
			logger.WithError(err).Error("error writing HTTP")
		}
		return
	}
	wr.Header().Add("Content-Type", "application/json")
	wr.WriteHeader(status)
	if _, err := wr.Write(body); err != nil {
		logger.WithError(err).Error("error writing HTTP")
	}
}

// HealthHandler answers 200 while the collector is receiving and 503 otherwise.
func HealthHandler(logger logrus.FieldLogger, source Source) http.HandlerFunc {
	return func(wr http.ResponseWriter, r *http.Request) {
		h := health{
			Status:     "ok",
			Collecting: source.Collecting(),
			Backend:    source.Target(),
		}
		status := http.StatusOK
		if !h.Collecting {
			h.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
		writeJSON(logger, wr, status, h)
	}
}

func StatsHandler(logger logrus.FieldLogger, source Source) http.HandlerFunc {
	return func(wr http.ResponseWriter, r *http.Request) {
		writeJSON(logger, wr, http.StatusOK, source.Stats())
	}
}

// TemplatesHandler lists the live NetFlow v9 and IPFIX templates.
func TemplatesHandler(logger logrus.FieldLogger, source Source) http.HandlerFunc {
	return func(wr http.ResponseWriter, r *http.Request) {
		registry := source.Templates()
		if registry == nil {
			wr.WriteHeader(http.StatusNotFound)
			if _, err := wr.Write([]byte("Not Found\n")); err != nil {
				logger.WithError(err).Error("error writing HTTP")
			}
			return
		}
		writeJSON(logger, wr, http.StatusOK, registry.Dump())
	}
}

// New constructs a mux with metrics, health, stats and templates endpoints.
func New(cfg Config, source Source) *http.ServeMux {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/__health", HealthHandler(logger, source))
	mux.HandleFunc("/stats", StatsHandler(logger, source))
	if cfg.TemplatePath != "" {
		mux.HandleFunc(cfg.TemplatePath, TemplatesHandler(logger, source))
	}

	return mux
}
