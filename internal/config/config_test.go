package config

import (
	"testing"

	"github.com/MeKo-Tech/roiscan/internal/engine"
	"github.com/MeKo-Tech/roiscan/internal/region"
	"github.com/MeKo-Tech/roiscan/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "eng", cfg.Engine.Language)
	assert.Equal(t, engine.DefaultWhitelist, cfg.Engine.Whitelist)
	assert.Equal(t, "tessdata", cfg.Engine.AssetPath)
	assert.Equal(t, 100, cfg.Region.MinSize)
	assert.Equal(t, 70, cfg.Region.TouchZone)
	assert.Equal(t, RegionBounds{X: 50, Y: 50, Width: 200, Height: 100}, cfg.Region.Initial)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults valid", mutate: func(*Config) {}},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "invalid log level"},
		{name: "empty language", mutate: func(c *Config) { c.Engine.Language = " " }, wantErr: "invalid engine language"},
		{name: "language with path", mutate: func(c *Config) { c.Engine.Language = "../eng" }, wantErr: "invalid engine language"},
		{name: "zero min size", mutate: func(c *Config) { c.Region.MinSize = 0 }, wantErr: "min size"},
		{name: "negative touch zone", mutate: func(c *Config) { c.Region.TouchZone = -1 }, wantErr: "touch zone"},
		{name: "unknown luma", mutate: func(c *Config) { c.Transform.Luma = "srgb" }, wantErr: "invalid luma"},
		{name: "upper-case luma accepted", mutate: func(c *Config) { c.Transform.Luma = "BT709" }},
		{name: "port too high", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "invalid server port"},
		{name: "port zero", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "invalid server port"},
		{name: "upload size", mutate: func(c *Config) { c.Server.MaxUploadMB = 0 }, wantErr: "max upload"},
		{name: "timeout", mutate: func(c *Config) { c.Server.TimeoutSec = -5 }, wantErr: "invalid timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Language = "deu"
	cfg.Region.MinSize = 120
	cfg.Region.Initial = RegionBounds{X: 10, Y: 20, Width: 30, Height: 400}

	assert.Equal(t, engine.Config{Language: "deu", Whitelist: engine.DefaultWhitelist}, cfg.ToEngineConfig())

	rc := cfg.ToRegionConfig()
	assert.Equal(t, 120, rc.MinSize)
	assert.Equal(t, region.ScanRegion{X: 10, Y: 20, Width: 30, Height: 400}, rc.Initial)
	assert.Equal(t, region.ScanRegion{X: 10, Y: 20, Width: 120, Height: 400}, region.NewController(rc).Snapshot())

	assert.Equal(t, transform.LumaBT601, cfg.ToTransformConfig().Luma)
	cfg.Transform.Luma = "bt709"
	assert.Equal(t, transform.LumaBT709, cfg.ToTransformConfig().Luma)
}

func TestDataDirUsesExplicitSetting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.DataDir = "/var/lib/roiscan/tessdata"
	assert.Equal(t, "/var/lib/roiscan/tessdata", cfg.DataDir())
}

func TestConfigYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 9090
	cfg.Region.Initial.Width = 300

	data, err := yaml.Marshal(&cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "touch_zone: 70")

	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, cfg, back)
}
