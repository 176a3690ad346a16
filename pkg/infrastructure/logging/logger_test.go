package logging

import (
	"testing"

	"github.com/vsinha/batchalloc/pkg/infrastructure/config"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		appEnv    string
		cfg       config.LoggerConfig
		wantLevel zap.AtomicLevel
		wantErr   bool
	}{
		{name: "development_debug", appEnv: "dev", cfg: config.LoggerConfig{Level: "debug", Encoding: "console"}, wantLevel: zap.NewAtomicLevelAt(zap.DebugLevel)},
		{name: "production_json", appEnv: "production", cfg: config.LoggerConfig{Level: "warn", Encoding: "json"}, wantLevel: zap.NewAtomicLevelAt(zap.WarnLevel)},
		{name: "unknown_level", appEnv: "dev", cfg: config.LoggerConfig{Level: "chatty"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.appEnv, tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to build logger: %v", err)
			}
			if !logger.Core().Enabled(tt.wantLevel.Level()) {
				t.Errorf("Expected level %v to be enabled", tt.wantLevel.Level())
			}
			if logger.Core().Enabled(tt.wantLevel.Level() - 1) {
				t.Errorf("Expected level below %v to be disabled", tt.wantLevel.Level())
			}
		})
	}
}

func TestBuildConfig_Encoding(t *testing.T) {
	tests := []struct {
		name    string
		appEnv  string
		cfg     config.LoggerConfig
		want    string
		wantErr bool
	}{
		{name: "production_default", appEnv: "production", cfg: config.LoggerConfig{Level: "info"}, want: "json"},
		{name: "production_console", appEnv: "production", cfg: config.LoggerConfig{Level: "info", Encoding: "console"}, want: "console"},
		{name: "development_json", appEnv: "dev", cfg: config.LoggerConfig{Encoding: "json"}, want: "json"},
		{name: "development_default", appEnv: "dev", cfg: config.LoggerConfig{}, want: "console"},
		{name: "unknown_encoding", appEnv: "dev", cfg: config.LoggerConfig{Encoding: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zapCfg, err := buildConfig(tt.appEnv, tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to build config: %v", err)
			}
			if zapCfg.Encoding != tt.want {
				t.Errorf("Expected encoding %s, got %s", tt.want, zapCfg.Encoding)
			}
		})
	}
}
