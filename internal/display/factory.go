package display

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
)

// ErrUnsupportedBackend is returned for an unknown display backend.
var ErrUnsupportedBackend = errors.New("unsupported display backend")

// New opens the display named in cfg.
func New(cfg config.DisplayConfig, logger *zap.Logger) (schemas.Display, error) {
	switch cfg.Backend {
	case config.DisplayDesktop:
		return NewDesktop(logger), nil
	case config.DisplayBrowser:
		return NewBrowser(cfg.Browser, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Backend)
	}
}
