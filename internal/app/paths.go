package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved filesystem paths for the .silencio/ project directory.
type Paths struct {
	Root   string // .silencio/
	DB     string // .silencio/silencio.db
	Config string // .silencio/config.yaml

	LogDir string // .silencio/log/
	Log    string // .silencio/log/silencio.log

	RunDir   string // .silencio/run/
	PortFile string // .silencio/run/http.port

	OutDir string // .silencio/out/
}

// NewPaths constructs all resolved paths from a project root directory.
func NewPaths(projectRoot string) *Paths {
	root := filepath.Join(projectRoot, ".silencio")
	return &Paths{
		Root:   root,
		DB:     filepath.Join(root, "silencio.db"),
		Config: filepath.Join(root, "config.yaml"),

		LogDir: filepath.Join(root, "log"),
		Log:    filepath.Join(root, "log", "silencio.log"),

		RunDir:   filepath.Join(root, "run"),
		PortFile: filepath.Join(root, "run", "http.port"),

		OutDir: filepath.Join(root, "out"),
	}
}

// EnsureDirs creates all subdirectories under .silencio/. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.LogDir, p.RunDir, p.OutDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// CleanEphemeral removes runtime files left by `silencio serve`.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PortFile)
}
