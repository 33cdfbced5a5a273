package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPaths(t *testing.T) {
	p := &Paths{AppName: "realtalk", HomeDir: "/home/u"}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"base", p.BaseDir(), "/home/u/.realtalk"},
		{"app", p.AppDir(), "/home/u/.realtalk/realtalk"},
		{"config", p.ConfigFile(), "/home/u/.realtalk/realtalk/config.yaml"},
		{"store", p.StoreDir(), "/home/u/.realtalk/realtalk/transcripts"},
		{"audio", p.AudioDir(), "/home/u/.realtalk/realtalk/audio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filepath.ToSlash(tt.got); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPathsResolveStoreDir(t *testing.T) {
	p := &Paths{AppName: "realtalk", HomeDir: "/home/u"}
	if got := p.ResolveStoreDir(nil); got != p.StoreDir() {
		t.Errorf("ResolveStoreDir(nil) = %q, want default", got)
	}
	if got := p.ResolveStoreDir(&Context{}); got != p.StoreDir() {
		t.Errorf("ResolveStoreDir(empty) = %q, want default", got)
	}
	if got := p.ResolveStoreDir(&Context{StoreDir: "/data"}); got != "/data" {
		t.Errorf("ResolveStoreDir = %q, want /data", got)
	}
}

func TestPathsAudioPath(t *testing.T) {
	p := &Paths{AppName: "realtalk", HomeDir: t.TempDir()}
	path, err := p.AudioPath("out.opus")
	if err != nil {
		t.Fatalf("AudioPath: %v", err)
	}
	if filepath.Base(path) != "out.opus" {
		t.Errorf("AudioPath = %q", path)
	}
	if fi, err := os.Stat(p.AudioDir()); err != nil || !fi.IsDir() {
		t.Errorf("audio dir not created: %v", err)
	}
}
