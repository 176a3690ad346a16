package logging

import (
	"fmt"

	"github.com/vsinha/batchalloc/pkg/infrastructure/config"
	"go.uber.org/zap"
)

// New builds a zap logger from cfg. JSON encoding or a production environment
// selects the production preset; anything else gets the development console preset.
// A configured encoding always wins over the preset's.
func New(appEnv string, cfg config.LoggerConfig) (*zap.Logger, error) {
	zapCfg, err := buildConfig(appEnv, cfg)
	if err != nil {
		return nil, err
	}
	return zapCfg.Build()
}

func buildConfig(appEnv string, cfg config.LoggerConfig) (zap.Config, error) {
	var zapCfg zap.Config

	if cfg.Encoding == "json" || appEnv == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Encoding {
	case "json", "console":
		zapCfg.Encoding = cfg.Encoding
	case "":
	default:
		return zap.Config{}, fmt.Errorf("unknown log encoding %q", cfg.Encoding)
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case "":
	default:
		return zap.Config{}, fmt.Errorf("unknown log level %q", cfg.Level)
	}

	zapCfg.DisableCaller = cfg.DisableCaller
	zapCfg.DisableStacktrace = cfg.DisableStacktrace
	zapCfg.OutputPaths = []string{"stderr"}

	return zapCfg, nil
}
