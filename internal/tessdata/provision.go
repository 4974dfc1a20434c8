package tessdata

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/MeKo-Tech/roiscan/internal/scanerr"
)

// Provisioner copies bundled trained data into the writable data directory.
type Provisioner struct {
	assets    fs.FS
	assetPath string
	dataDir   string

	mu sync.Mutex
}

// Result describes the outcome of a provisioning call.
type Result struct {
	Path   string // absolute location of the trained-data file
	Copied bool   // false when the file was already present
	Bytes  int64  // bytes written when Copied
}

// NewProvisioner creates a provisioner reading from assets under assetPath
// and writing into dataDir. Empty values use the defaults.
func NewProvisioner(assets fs.FS, assetPath, dataDir string) *Provisioner {
	if assetPath == "" {
		assetPath = DefaultAssetPath
	}
	return &Provisioner{assets: assets, assetPath: assetPath, dataDir: GetDataDir(dataDir)}
}

// DataDir returns the directory trained data is provisioned into.
func (p *Provisioner) DataDir() string { return p.dataDir }

// Ensure makes sure the trained-data file for lang exists in the data
// directory, copying it from the assets when absent. An existing file is
// never overwritten.
func (p *Provisioner) Ensure(lang string) (Result, error) {
	const op = "provision"
	p.mu.Lock()
	defer p.mu.Unlock()

	dst := filepath.Join(p.dataDir, FileName(lang))
	res := Result{Path: dst}

	if info, err := os.Stat(dst); err == nil {
		if !info.Mode().IsRegular() {
			return res, scanerr.Newf(scanerr.CodeProvisioningFailed, op, "%s is not a regular file", dst)
		}
		slog.Debug("Trained data already provisioned", "path", dst)
		return res, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return res, scanerr.New(scanerr.CodeProvisioningFailed, op, err)
	}

	if p.assets == nil {
		return res, scanerr.Newf(scanerr.CodeProvisioningFailed, op, "no bundled assets to copy %s from", FileName(lang))
	}

	if err := os.MkdirAll(p.dataDir, 0o755); err != nil {
		return res, scanerr.New(scanerr.CodeProvisioningFailed, op, fmt.Errorf("create data dir: %w", err))
	}

	n, err := p.copyAsset(path.Join(p.assetPath, FileName(lang)), dst)
	if err != nil {
		return res, scanerr.New(scanerr.CodeProvisioningFailed, op, err)
	}

	res.Copied = true
	res.Bytes = n
	slog.Info("Trained data copied", "path", dst, "bytes", n)
	return res, nil
}

// copyAsset streams src from the asset filesystem into dst. The data is
// written to a temporary file first so a failed copy never leaves a partial
// file behind that would later be taken as provisioned.
func (p *Provisioner) copyAsset(src, dst string) (int64, error) {
	in, err := p.assets.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open asset %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".provision-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	n, err := io.Copy(tmp, in)
	if err != nil {
		cleanup()
		return 0, fmt.Errorf("copy %s: %w", src, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return 0, fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("install %s: %w", dst, err)
	}
	return n, nil
}
