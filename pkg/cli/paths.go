package cli

import (
	"os"
	"path/filepath"
)

// Paths locates the per-app directories under ~/.realtalk.
type Paths struct {
	AppName string
	HomeDir string
}

// NewPaths creates a new Paths instance for the given app
func NewPaths(appName string) (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{
		AppName: appName,
		HomeDir: home,
	}, nil
}

// BaseDir returns ~/.realtalk
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// AppDir returns ~/.realtalk/<app>
func (p *Paths) AppDir() string {
	return filepath.Join(p.BaseDir(), p.AppName)
}

// ConfigFile returns ~/.realtalk/<app>/config.yaml
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.AppDir(), DefaultConfigFile)
}

// StoreDir returns the transcript store directory, ~/.realtalk/<app>/transcripts
func (p *Paths) StoreDir() string {
	return filepath.Join(p.AppDir(), "transcripts")
}

// AudioDir returns the directory for captured audio, ~/.realtalk/<app>/audio
func (p *Paths) AudioDir() string {
	return filepath.Join(p.AppDir(), "audio")
}

// AudioPath returns a path within the audio directory, creating the
// directory if needed.
func (p *Paths) AudioPath(name string) (string, error) {
	if err := os.MkdirAll(p.AudioDir(), 0755); err != nil {
		return "", err
	}
	return filepath.Join(p.AudioDir(), name), nil
}

// ResolveStoreDir returns ctx.StoreDir when set, the default store directory
// otherwise.
func (p *Paths) ResolveStoreDir(ctx *Context) string {
	if ctx != nil && ctx.StoreDir != "" {
		return ctx.StoreDir
	}
	return p.StoreDir()
}
