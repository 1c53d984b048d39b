package services

import (
	"context"
	"errors"

	"cuotas/internal/core"
	"cuotas/internal/extract"
	"cuotas/internal/log"
)

// ErrExtractionDisabled is returned when no extractor is configured.
var ErrExtractionDisabled = errors.New("statement extraction is not configured")

// StatementService reads candidate purchases from statement images.
type StatementService struct {
	extractor extract.Extractor
	logger    *log.Logger
}

// NewStatementService accepts a nil extractor, in which case Extract
// reports ErrExtractionDisabled.
func NewStatementService(extractor extract.Extractor, logger *log.Logger) *StatementService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &StatementService{extractor: extractor, logger: logger.WithComponent(log.ComponentStatement)}
}

func (s *StatementService) Enabled() bool {
	return s.extractor != nil
}

// Extract returns the candidates found in image. Extraction failures and
// malformed replies are logged and yield zero candidates; the only error
// returned is ErrExtractionDisabled.
func (s *StatementService) Extract(ctx context.Context, image []byte, mimeType string) ([]core.Candidate, error) {
	if s.extractor == nil {
		return nil, ErrExtractionDisabled
	}

	candidates, err := s.extractor.Extract(ctx, image, mimeType)
	if err != nil {
		s.logger.WarnContext(ctx, "Statement extraction failed, returning no candidates",
			log.FieldOperation, log.OpExtract,
			log.FieldError, err.Error(),
			"image_bytes", len(image),
			"mime_type", mimeType)
		return []core.Candidate{}, nil
	}
	if candidates == nil {
		candidates = []core.Candidate{}
	}

	s.logger.InfoContext(ctx, "Statement extracted",
		log.FieldOperation, log.OpExtract,
		log.FieldCandidates, len(candidates))
	return candidates, nil
}
