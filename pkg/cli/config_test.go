package cli

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfigWithPath("realtalk", filepath.Join(t.TempDir(), "realtalk", "config.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigWithPath: %v", err)
	}
	return cfg
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"1234", "****"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"sk-1234567890abcdef", "sk-1***********cdef"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := MaskAPIKey(tt.key); got != tt.want {
				t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLoadConfigCreatesFile(t *testing.T) {
	cfg := newTestConfig(t)
	if _, err := os.Stat(cfg.Path()); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if cfg.Dir() != filepath.Dir(cfg.Path()) {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), filepath.Dir(cfg.Path()))
	}
	if len(cfg.Contexts) != 0 {
		t.Errorf("new config has %d contexts, want 0", len(cfg.Contexts))
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := newTestConfig(t)
	err := cfg.AddContext("prod", &Context{
		APIKey:    "sk-prod-0123456789",
		Model:     "gpt-realtime",
		Voice:     "marin",
		Transport: "webrtc",
		StoreDir:  "/var/realtalk",
		S3: &S3Credentials{
			Endpoint:  "http://localhost:9000",
			AccessKey: "ak",
			SecretKey: "sk",
			PathStyle: true,
		},
	})
	if err != nil {
		t.Fatalf("AddContext: %v", err)
	}
	if cfg.CurrentContext != "prod" {
		t.Errorf("first context not made current: %q", cfg.CurrentContext)
	}
	if err := cfg.AddContext("dev", &Context{APIKey: "sk-dev"}); err != nil {
		t.Fatalf("AddContext: %v", err)
	}

	loaded, err := LoadConfigWithPath("realtalk", cfg.Path())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got, want := loaded.ListContexts(), []string{"dev", "prod"}; !slices.Equal(got, want) {
		t.Fatalf("ListContexts() = %v, want %v", got, want)
	}
	ctx, err := loaded.GetCurrentContext()
	if err != nil {
		t.Fatalf("GetCurrentContext: %v", err)
	}
	if ctx.Name != "prod" || ctx.Transport != "webrtc" || ctx.Voice != "marin" {
		t.Errorf("prod context = %+v", ctx)
	}
	if ctx.S3 == nil || !ctx.S3.PathStyle || ctx.S3.Endpoint != "http://localhost:9000" {
		t.Errorf("s3 credentials = %+v", ctx.S3)
	}
}

func TestConfigContextOperations(t *testing.T) {
	cfg := newTestConfig(t)
	if _, err := cfg.GetCurrentContext(); !errors.Is(err, ErrNoCurrentContext) {
		t.Errorf("GetCurrentContext with none set: error = %v, want ErrNoCurrentContext", err)
	}
	if err := cfg.AddContext("", &Context{}); err == nil {
		t.Error("AddContext with empty name: want error")
	}
	if err := cfg.UseContext("missing"); !errors.Is(err, ErrContextNotFound) {
		t.Errorf("UseContext(missing): error = %v, want ErrContextNotFound", err)
	}

	cfg.AddContext("a", &Context{APIKey: "1"})
	cfg.AddContext("b", &Context{APIKey: "2"})
	if err := cfg.UseContext("b"); err != nil {
		t.Fatalf("UseContext: %v", err)
	}
	ctx, err := cfg.ResolveContext("")
	if err != nil || ctx.Name != "b" {
		t.Fatalf("ResolveContext(\"\") = %v, %v; want b", ctx, err)
	}
	ctx, err = cfg.ResolveContext("a")
	if err != nil || ctx.Name != "a" {
		t.Fatalf("ResolveContext(a) = %v, %v; want a", ctx, err)
	}

	if err := cfg.DeleteContext("b"); err != nil {
		t.Fatalf("DeleteContext: %v", err)
	}
	if cfg.CurrentContext != "" {
		t.Errorf("CurrentContext after deleting it = %q, want empty", cfg.CurrentContext)
	}
	if err := cfg.DeleteContext("b"); err == nil {
		t.Error("DeleteContext twice: want error")
	}
}

func TestAddContextTransport(t *testing.T) {
	cfg := newTestConfig(t)
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"WS", "websocket", false},
		{"webrtc", "webrtc", false},
		{"carrier-pigeon", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ctx := &Context{APIKey: "k", Transport: tt.in}
			err := cfg.AddContext("t", ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AddContext(transport %q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && ctx.Transport != tt.want {
				t.Errorf("Transport = %q, want %q", ctx.Transport, tt.want)
			}
		})
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	cfg := newTestConfig(t)
	if err := cfg.AddContext("a", &Context{APIKey: "1"}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(cfg.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "config.yaml" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("config dir = %v, want [config.yaml]", names)
	}
	info, err := os.Stat(cfg.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config mode = %o, want 600", perm)
	}
}

func TestLoadConfigParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("contexts: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigWithPath("realtalk", path); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Fatalf("LoadConfigWithPath = %v, want parse error", err)
	}
}

func TestContextMasked(t *testing.T) {
	ctx := &Context{
		Name:   "prod",
		APIKey: "sk-1234567890abcdef",
		S3:     &S3Credentials{AccessKey: "ak", SecretKey: "secretsecret"},
	}
	m := ctx.Masked()
	if m.APIKey == ctx.APIKey || !strings.HasPrefix(m.APIKey, "sk-1") {
		t.Errorf("masked api key = %q", m.APIKey)
	}
	if m.S3.SecretKey == ctx.S3.SecretKey {
		t.Error("secret key not masked")
	}
	if ctx.S3.SecretKey != "secretsecret" || ctx.APIKey != "sk-1234567890abcdef" {
		t.Error("Masked modified the original context")
	}
}
