package grounding

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
)

// ErrUnsupportedBackend is returned for an unknown grounding backend.
var ErrUnsupportedBackend = errors.New("unsupported grounding backend")

// NewModel selects the inference backend named in cfg.
func NewModel(cfg config.GroundingConfig, logger *zap.Logger) (schemas.GroundingModel, error) {
	switch cfg.Backend {
	case config.GroundingHTTP:
		return NewHTTPModel(cfg, logger), nil
	case config.GroundingOllama:
		return NewOllamaModel(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Backend)
	}
}
