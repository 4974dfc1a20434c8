//nolint:lll
package config

// Config represents the complete configuration for the roiscan application.
// It covers the engine, the region controller and the server, and is loaded
// from configuration files, .env files, environment variables and flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Engine    EngineConfig    `mapstructure:"engine" yaml:"engine" json:"engine"`
	Region    RegionConfig    `mapstructure:"region" yaml:"region" json:"region"`
	Transform TransformConfig `mapstructure:"transform" yaml:"transform" json:"transform"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server" json:"server"`
}

// EngineConfig contains recognition engine settings.
type EngineConfig struct {
	Language  string `mapstructure:"language" yaml:"language" json:"language"`
	Whitelist string `mapstructure:"whitelist" yaml:"whitelist" json:"whitelist"`
	// DataDir is the writable directory trained data is provisioned into.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir" json:"data_dir"`
	// AssetsDir is the read-only bundle root holding AssetPath.
	AssetsDir string `mapstructure:"assets_dir" yaml:"assets_dir" json:"assets_dir"`
	AssetPath string `mapstructure:"asset_path" yaml:"asset_path" json:"asset_path"`
}

// RegionConfig contains scan region geometry settings.
type RegionConfig struct {
	MinSize   int          `mapstructure:"min_size" yaml:"min_size" json:"min_size"`
	TouchZone int          `mapstructure:"touch_zone" yaml:"touch_zone" json:"touch_zone"`
	Initial   RegionBounds `mapstructure:"initial" yaml:"initial" json:"initial"`
}

// RegionBounds is the initial scan rectangle in view coordinates.
type RegionBounds struct {
	X      int `mapstructure:"x" yaml:"x" json:"x"`
	Y      int `mapstructure:"y" yaml:"y" json:"y"`
	Width  int `mapstructure:"width" yaml:"width" json:"width"`
	Height int `mapstructure:"height" yaml:"height" json:"height"`
}

// TransformConfig selects the grayscale conversion.
type TransformConfig struct {
	// Luma is "bt601" or "bt709".
	Luma string `mapstructure:"luma" yaml:"luma" json:"luma"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}
