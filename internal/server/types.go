package server

import (
	"context"
	"net/http"

	"github.com/MeKo-Tech/roiscan/internal/engine"
	"github.com/MeKo-Tech/roiscan/internal/frame"
	"github.com/MeKo-Tech/roiscan/internal/region"
	"github.com/MeKo-Tech/roiscan/internal/scan"
	"github.com/MeKo-Tech/roiscan/internal/transform"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// engineInterface defines the methods needed by the server from the engine manager.
type engineInterface interface {
	EnsureReady(ctx context.Context) error
	Recognize(img *frame.Gray) (engine.Extracted, error)
	State() engine.State
	Err() error
	Shutdown()
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	engine      engineInterface
	transform   *transform.Pipeline
	region      region.Config
	language    string
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	Region      region.Config
	Transform   transform.Config
	Language    string
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Engine  string `json:"engine"`
	Time    string `json:"time"`
}

type EngineResponse struct {
	State    string `json:"state"`
	Ready    bool   `json:"ready"`
	Language string `json:"language,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ScanResponse struct {
	Success bool         `json:"success"`
	Result  *scan.Result `json:"result,omitempty"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
	Code    string       `json:"code,omitempty"`
}

// NewServer creates a server around an engine manager. The caller keeps
// ownership of readiness: the engine may still be initializing.
func NewServer(config Config, eng engineInterface) *Server {
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 20
	}
	if config.TimeoutSec <= 0 {
		config.TimeoutSec = 30
	}
	if config.CORSOrigin == "" {
		config.CORSOrigin = "*"
	}
	if config.Region == (region.Config{}) {
		config.Region = region.DefaultConfig()
	}
	if obs, ok := eng.(interface{ OnStateChange(func(engine.State)) }); ok {
		obs.OnStateChange(func(st engine.State) { engineState.Set(float64(st)) })
	}
	if eng != nil {
		engineState.Set(float64(eng.State()))
	}
	return &Server{
		engine:      eng,
		transform:   transform.New(config.Transform),
		region:      config.Region,
		language:    config.Language,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
	}
}

// Close shuts the engine down.
func (s *Server) Close() error {
	if s.engine != nil {
		s.engine.Shutdown()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/engine", s.corsMiddleware(s.engineHandler))
	mux.HandleFunc("/scan", s.corsMiddleware(s.scanHandler))
	mux.HandleFunc("/ws", s.scanWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
