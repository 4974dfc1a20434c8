package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/roiscan/internal/capture"
	"github.com/MeKo-Tech/roiscan/internal/engine"
	"github.com/MeKo-Tech/roiscan/internal/region"
	"github.com/MeKo-Tech/roiscan/internal/scan"
	"github.com/MeKo-Tech/roiscan/internal/scanerr"
	"github.com/MeKo-Tech/roiscan/internal/version"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Engine:  s.engineState().String(),
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, http.StatusOK, response)
}

// engineHandler reports the engine state on GET and initializes it on POST.
func (s *Server) engineHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		if s.engine == nil {
			s.writeErrorResponse(w, "recognition engine not configured", "", http.StatusServiceUnavailable)
			return
		}
		if err := s.engine.EnsureReady(r.Context()); err != nil {
			slog.Error("Engine initialization requested by client failed", "error", err)
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st := s.engineState()
	response := EngineResponse{State: st.String(), Ready: st == engine.StateReady || st == engine.StateBusy, Language: s.language}
	if s.engine != nil {
		if err := s.engine.Err(); err != nil {
			response.Error = err.Error()
		}
	}
	status := http.StatusOK
	if r.Method == http.MethodPost && !response.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (s *Server) engineState() engine.State {
	if s.engine == nil {
		return engine.StateUninitialized
	}
	return s.engine.State()
}

// scanHandler runs one scan over an uploaded image. The scan region comes
// from the x, y, width and height form fields, defaulting to the configured
// initial region.
func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "File too large", "", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", "", http.StatusBadRequest)
		}
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", "", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	reg, err := parseRegion(r, s.region.Initial)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), "", http.StatusBadRequest)
		return
	}

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", "", http.StatusBadRequest)
		return
	}
	still, err := capture.NewStill(img)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), "", http.StatusBadRequest)
		return
	}

	if s.engine == nil {
		s.writeErrorResponse(w, "recognition engine not configured", string(scanerr.CodeEngineNotReady), http.StatusServiceUnavailable)
		return
	}

	cfg := s.region
	cfg.Initial = reg
	orch := scan.New(still, region.NewController(cfg), s.transform, s.engine, scan.WithObserver(scanMetrics("http")))

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
	defer cancel()

	oc := <-orch.ScanAsync(ctx)
	if oc.Err != nil {
		s.writeScanError(w, oc.Err)
		return
	}
	writeJSON(w, http.StatusOK, ScanResponse{Success: true, Result: oc.Result, Message: oc.Result.Message()})
}

// parseRegion reads region fields from the form. Missing fields keep the
// value of def.
func parseRegion(r *http.Request, def region.ScanRegion) (region.ScanRegion, error) {
	out := def
	fields := []struct {
		name string
		dst  *int
	}{
		{"x", &out.X},
		{"y", &out.Y},
		{"width", &out.Width},
		{"height", &out.Height},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(r.FormValue(f.name))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return def, fmt.Errorf("invalid region field %s: %q", f.name, raw)
		}
		*f.dst = v
	}
	if err := validateRegion(out); err != nil {
		return def, err
	}
	return out, nil
}

// maxRegionCoord bounds client-supplied region coordinates and sizes.
const maxRegionCoord = 1 << 20

// validateRegion rejects regions with non-positive sizes or coordinates far
// beyond any camera frame.
func validateRegion(r region.ScanRegion) error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("invalid region size %dx%d: must be positive", r.Width, r.Height)
	}
	for _, v := range []int{r.X, r.Y, r.Width, r.Height} {
		if v < -maxRegionCoord || v > maxRegionCoord {
			return fmt.Errorf("invalid region %v: values must be within ±%d", r, maxRegionCoord)
		}
	}
	return nil
}

func (s *Server) writeScanError(w http.ResponseWriter, err error) {
	code := scanerr.CodeOf(err)
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Scan request failed", "code", string(code), "error", err)
	}
	s.writeErrorResponse(w, scan.FailureMessage(err), string(code), status)
}

// statusForError maps scan errors to HTTP status codes.
func statusForError(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch scanerr.CodeOf(err) {
	case scanerr.CodeEmptyRegion:
		return http.StatusUnprocessableEntity
	case scanerr.CodeEngineBusy:
		return http.StatusConflict
	case scanerr.CodeEngineNotReady, scanerr.CodeEngineInitFailed, scanerr.CodeNoFrame, scanerr.CodePermissionDenied:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message, code string, statusCode int) {
	writeJSON(w, statusCode, ScanResponse{Success: false, Error: message, Code: code})
}
