package inpaint

import (
	"fmt"
	"time"

	"github.com/yokitheyo/watermarkremover/internal/config"
)

// NewFactory selects the model backend named in cfg.
func NewFactory(cfg *config.InpaintConfig) (Factory, error) {
	switch cfg.Backend {
	case config.BackendBuiltin, "":
		return NewBuiltinFactory(cfg.BuiltinIterations), nil
	case config.BackendRemote:
		if cfg.RemoteURL == "" {
			return nil, fmt.Errorf("inpaint: remote backend requires remote_url")
		}
		return NewRemoteFactory(cfg.RemoteURL, time.Duration(cfg.RemoteTimeoutSec)*time.Second, cfg.RemoteToken), nil
	default:
		return nil, fmt.Errorf("inpaint: unknown backend %q", cfg.Backend)
	}
}
