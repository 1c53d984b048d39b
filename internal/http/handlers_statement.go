package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"cuotas/internal/core"
	"cuotas/internal/log"
	"cuotas/internal/services"
)

type extractResponse struct {
	Candidates []core.Candidate `json:"candidates"`
}

// handleExtractStatement reads the multipart "image" field and returns the
// candidates found on it for review. Nothing is stored.
func (s *Server) handleExtractStatement(w http.ResponseWriter, r *http.Request) {
	if s.statements == nil || !s.statements.Enabled() {
		fail(w, r, log.OpExtract, services.ErrExtractionDisabled)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBody)
	if err := r.ParseMultipartForm(maxImageBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, `missing "image" file`)
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "cannot read image")
		return
	}
	if len(image) == 0 {
		writeError(w, r, http.StatusBadRequest, "empty image")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(image)
	}

	candidates, err := s.statements.Extract(r.Context(), image, mimeType)
	if err != nil {
		fail(w, r, log.OpExtract, err)
		return
	}
	writeJSON(w, http.StatusOK, extractResponse{Candidates: candidates})
}
