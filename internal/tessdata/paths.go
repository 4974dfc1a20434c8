// Package tessdata locates and provisions the trained-data files consumed by
// the recognition engine.
package tessdata

import (
	"os"
	"path/filepath"
)

const (
	// DefaultLanguage is the language code the engine is initialized with.
	DefaultLanguage = "eng"

	// Extension is the suffix of trained-data files.
	Extension = ".traineddata"

	// DefaultAssetPath is the logical directory of bundled trained data
	// inside the asset filesystem.
	DefaultAssetPath = "tessdata"

	// EnvDataDir overrides the writable trained-data directory.
	EnvDataDir = "ROISCAN_TESSDATA_DIR"

	appDirName  = "roiscan"
	dataDirName = "tessdata"
)

// FileName returns the trained-data file name for lang.
func FileName(lang string) string {
	return lang + Extension
}

// GetDataDir returns the writable trained-data directory.
// Priority: 1. explicit dataDir, 2. environment variable, 3. user cache dir, 4. relative default.
func GetDataDir(dataDir string) string {
	if dataDir != "" {
		return dataDir
	}

	if envDir := os.Getenv(EnvDataDir); envDir != "" {
		return envDir
	}

	if cacheDir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cacheDir, appDirName, dataDirName)
	}

	return dataDirName
}

// DataFilePath returns the full path of the trained-data file for lang.
func DataFilePath(dataDir, lang string) string {
	return filepath.Join(GetDataDir(dataDir), FileName(lang))
}

// Exists reports whether the trained-data file for lang is present.
func Exists(dataDir, lang string) bool {
	info, err := os.Stat(DataFilePath(dataDir, lang))
	return err == nil && info.Mode().IsRegular()
}
