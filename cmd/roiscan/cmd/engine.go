package cmd

import (
	"os"

	"github.com/MeKo-Tech/roiscan/internal/config"
	"github.com/MeKo-Tech/roiscan/internal/engine"
	"github.com/MeKo-Tech/roiscan/internal/tessdata"
)

// newBackend constructs the recognition backend. Tests swap it out.
var newBackend = engine.NewTesseractBackend

func newProvisioner(cfg *config.Config) *tessdata.Provisioner {
	return tessdata.NewProvisioner(os.DirFS(cfg.Engine.AssetsDir), cfg.Engine.AssetPath, cfg.DataDir())
}

// newEngine wires a manager for cfg. The engine is not initialized yet.
func newEngine(cfg *config.Config) *engine.Manager {
	return engine.NewManager(cfg.ToEngineConfig(), newBackend(), newProvisioner(cfg))
}
