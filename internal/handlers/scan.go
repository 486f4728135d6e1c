package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/benvon/scanwise/internal/ingest"
	"github.com/benvon/scanwise/internal/scan"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxImagesPerUpload caps one multipart batch
const maxImagesPerUpload = 10

// ScanHandler handles scan lifecycle requests
type ScanHandler struct {
	orchestrator *scan.Orchestrator
	logger       *zap.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(orchestrator *scan.Orchestrator, logger *zap.Logger) *ScanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanHandler{orchestrator: orchestrator, logger: logger}
}

// RegisterRoutes registers scan routes on the given router.
// The router should already carry the /scan prefix.
func (h *ScanHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetScan).Methods("GET")
	r.HandleFunc("", h.StartScan).Methods("POST")
	r.HandleFunc("/images", h.AddImages).Methods("POST")
	r.HandleFunc("/images/{index}", h.RemoveImage).Methods("DELETE")
	r.HandleFunc("/retry", h.RetryScan).Methods("POST")
	r.HandleFunc("/reset", h.ResetScan).Methods("POST")
}

// GetScan returns the current scan snapshot
func (h *ScanHandler) GetScan(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.orchestrator.Snapshot())
}

// AddImages accepts a multipart upload and appends the decoded images to the
// selection. Field order in the form is the order the images take in the
// selection. Files that are not images are dropped, not rejected.
func (h *ScanHandler) AddImages(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid multipart form")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Warn("multipart_cleanup_failed", zap.Error(err))
		}
	}()

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "No images provided (use the 'images' form field)")
		return
	}
	if len(files) > maxImagesPerUpload {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Too many images in one upload")
		return
	}

	sources := make([]ingest.Source, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			h.logger.Warn("multipart_file_open_failed", zap.Error(err))
			continue
		}
		data, err := io.ReadAll(f)
		if closeErr := f.Close(); closeErr != nil {
			h.logger.Warn("multipart_file_close_failed", zap.Error(closeErr))
		}
		if err != nil {
			h.logger.Warn("multipart_file_read_failed", zap.Error(err))
			continue
		}
		sources = append(sources, ingest.BytesSource(fh.Filename, data))
	}

	h.orchestrator.Ingestor().AddFiles(r.Context(), sources...)
	respondJSON(w, http.StatusOK, h.orchestrator.Snapshot())
}

// RemoveImage removes one image from the selection by position
func (h *ScanHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Image index must be a number")
		return
	}
	if err := h.orchestrator.Ingestor().RemoveAt(index); err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.orchestrator.Snapshot())
}

// StartScan begins analysing the current selection. The analysis keeps
// running after the response is sent; poll GET /scan for the outcome.
func (h *ScanHandler) StartScan(w http.ResponseWriter, r *http.Request) {
	// The attempt outlives this request, so detach it from the request's
	// cancellation while keeping its values.
	err := h.orchestrator.Start(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, scan.ErrScanInFlight):
		respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
		return
	case errors.Is(err, scan.ErrNoImages):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	case errors.Is(err, scan.ErrProfileNotConfigured):
		respondJSONError(w, http.StatusPreconditionFailed, "Precondition Failed", "Complete your profile before scanning")
		return
	case err != nil:
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to start scan")
		return
	}
	respondJSON(w, http.StatusAccepted, h.orchestrator.Snapshot())
}

// RetryScan returns to idle after an unclear or failed attempt
func (h *ScanHandler) RetryScan(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.Retry(); err != nil {
		respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.orchestrator.Snapshot())
}

// ResetScan abandons the current attempt and clears the selection
func (h *ScanHandler) ResetScan(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.Reset()
	respondJSON(w, http.StatusOK, h.orchestrator.Snapshot())
}
