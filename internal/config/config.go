package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/roiscan/internal/engine"
	"github.com/MeKo-Tech/roiscan/internal/region"
	"github.com/MeKo-Tech/roiscan/internal/tessdata"
	"github.com/MeKo-Tech/roiscan/internal/transform"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	initial := region.DefaultConfig().Initial
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Engine: EngineConfig{
			Language:  tessdata.DefaultLanguage,
			Whitelist: engine.DefaultWhitelist,
			DataDir:   "",
			AssetsDir: "assets",
			AssetPath: tessdata.DefaultAssetPath,
		},
		Region: RegionConfig{
			MinSize:   region.DefaultMinSize,
			TouchZone: region.DefaultTouchZone,
			Initial: RegionBounds{
				X:      initial.X,
				Y:      initial.Y,
				Width:  initial.Width,
				Height: initial.Height,
			},
		},
		Transform: TransformConfig{Luma: "bt601"},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
	}
}

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validLumas     = []string{"bt601", "bt709"}
)

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if strings.TrimSpace(c.Engine.Language) == "" {
		return fmt.Errorf("invalid engine language: must not be empty")
	}
	if strings.ContainsAny(c.Engine.Language, `/\`) {
		return fmt.Errorf("invalid engine language: %q", c.Engine.Language)
	}

	if c.Region.MinSize <= 0 {
		return fmt.Errorf("invalid region min size: %d (must be positive)", c.Region.MinSize)
	}
	if c.Region.TouchZone <= 0 {
		return fmt.Errorf("invalid region touch zone: %d (must be positive)", c.Region.TouchZone)
	}

	if c.Transform.Luma != "" && !slices.Contains(validLumas, strings.ToLower(c.Transform.Luma)) {
		return fmt.Errorf("invalid luma: %s (must be one of: %s)", c.Transform.Luma, strings.Join(validLumas, ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}

	return nil
}

// ToEngineConfig converts the engine section to the manager configuration.
func (c *Config) ToEngineConfig() engine.Config {
	return engine.Config{Language: c.Engine.Language, Whitelist: c.Engine.Whitelist}
}

// ToRegionConfig converts the region section to the controller configuration.
func (c *Config) ToRegionConfig() region.Config {
	b := c.Region.Initial
	return region.Config{
		MinSize:   c.Region.MinSize,
		TouchZone: c.Region.TouchZone,
		Initial:   region.ScanRegion{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height},
	}
}

// ToTransformConfig converts the transform section to the pipeline configuration.
func (c *Config) ToTransformConfig() transform.Config {
	cfg := transform.DefaultConfig()
	if strings.EqualFold(c.Transform.Luma, "bt709") {
		cfg.Luma = transform.LumaBT709
	}
	return cfg
}

// DataDir returns the resolved writable trained-data directory.
func (c *Config) DataDir() string {
	return tessdata.GetDataDir(c.Engine.DataDir)
}
