package termsnap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"go.yaml.in/yaml/v3"

	"pkt.systems/pslog"
)

// Bootstrap writes cfg as YAML to path, or to the default config path when
// path is empty. An existing file is never overwritten.
func Bootstrap(ctx context.Context, cfg Config, path string, logger pslog.Logger) (string, error) {
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config already exists at %s", path)
	} else if !os.IsNotExist(err) {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	logger.Info("bootstrapped config", "path", path)
	return path, nil
}
