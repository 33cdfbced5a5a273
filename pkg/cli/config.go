package cli

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

var (
	// ErrContextNotFound is wrapped by lookups of unknown context names.
	ErrContextNotFound = errors.New("context not found")

	// ErrNoCurrentContext is returned when no context is selected.
	ErrNoCurrentContext = errors.New("no current context set; run 'config use-context'")
)

const (
	// DefaultBaseDir is the base configuration directory name
	DefaultBaseDir = ".realtalk"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.yaml"
)

// Config is the configuration of a CLI app: a set of named contexts and the
// one currently in use.
type Config struct {
	// AppName is the application name
	AppName string `yaml:"-"`

	// CurrentContext is the name of the currently active context
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts maps context names to their settings
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context holds the connection settings for one Realtime API account.
type Context struct {
	Name string `yaml:"name" json:"name"`

	// APIKey is the bearer token
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`

	// BaseURL overrides the realtime endpoint, any of http(s) or ws(s)
	// (optional)
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// Organization and Project are sent as OpenAI-Organization and
	// OpenAI-Project headers when set
	Organization string `yaml:"organization,omitempty" json:"organization,omitempty"`
	Project      string `yaml:"project,omitempty" json:"project,omitempty"`

	// Model is the realtime model (optional)
	Model string `yaml:"model,omitempty" json:"model,omitempty"`

	// Voice is the default output voice (optional)
	Voice string `yaml:"voice,omitempty" json:"voice,omitempty"`

	// Transport is "websocket" or "webrtc" (optional, websocket if empty)
	Transport string `yaml:"transport,omitempty" json:"transport,omitempty"`

	// Beta selects the beta protocol dialect
	Beta bool `yaml:"beta,omitempty" json:"beta,omitempty"`

	// StoreDir overrides the transcript store directory (optional)
	StoreDir string `yaml:"store_dir,omitempty" json:"store_dir,omitempty"`

	// S3 holds credentials for exporting transcripts to s3:// destinations
	S3 *S3Credentials `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// S3Credentials configures an S3-compatible object store.
type S3Credentials struct {
	Endpoint  string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Region    string `yaml:"region,omitempty" json:"region,omitempty"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	PathStyle bool   `yaml:"path_style,omitempty" json:"path_style,omitempty"`
}

// LoadConfig loads or creates configuration for the specified app
func LoadConfig(appName string) (*Config, error) {
	return LoadConfigWithPath(appName, "")
}

// LoadConfigWithPath loads configuration from a custom path. An absent file
// is created empty.
func LoadConfigWithPath(appName, customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		paths, err := NewPaths(appName)
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = paths.ConfigFile()
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		AppName:    appName,
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, ctx := range cfg.Contexts {
		if ctx == nil {
			cfg.Contexts[name] = &Context{Name: name}
			continue
		}
		ctx.Name = name
	}
	cfg.AppName = appName
	cfg.configPath = configPath
	return cfg, nil
}

// Save writes the configuration atomically through a temp file in the same
// directory. The file holds API keys and is created 0600.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	tmp, err := os.CreateTemp(c.Dir(), ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string { return c.configPath }

// Dir returns the config directory path.
func (c *Config) Dir() string { return filepath.Dir(c.configPath) }

// AddContext adds or replaces a context and saves. The transport name is
// normalized; the first context added becomes current.
func (c *Config) AddContext(name string, ctx *Context) error {
	if name == "" {
		return errors.New("context name is required")
	}
	kind, err := rt.ParseTransportKind(ctx.Transport)
	if err != nil {
		return err
	}
	if ctx.Transport != "" {
		ctx.Transport = string(kind)
	}
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context and saves. Deleting the current context
// leaves no context selected.
func (c *Config) DeleteContext(name string) error {
	if _, err := c.GetContext(name); err != nil {
		return err
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext selects the current context and saves.
func (c *Config) UseContext(name string) error {
	if _, err := c.GetContext(name); err != nil {
		return err
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns the named context or an error wrapping
// ErrContextNotFound.
func (c *Config) GetContext(name string) (*Context, error) {
	if ctx, ok := c.Contexts[name]; ok {
		return ctx, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrContextNotFound, name)
}

// GetCurrentContext returns the selected context.
func (c *Config) GetCurrentContext() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, ErrNoCurrentContext
	}
	return c.GetContext(c.CurrentContext)
}

// ResolveContext returns the named context, or the current one if name is
// empty.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		return c.GetCurrentContext()
	}
	return c.GetContext(name)
}

// ListContexts returns the context names in sorted order.
func (c *Config) ListContexts() []string {
	return slices.Sorted(maps.Keys(c.Contexts))
}

// Masked returns a copy of ctx safe for display.
func (ctx *Context) Masked() *Context {
	out := *ctx
	out.APIKey = MaskAPIKey(ctx.APIKey)
	if ctx.S3 != nil {
		s3 := *ctx.S3
		s3.SecretKey = MaskAPIKey(s3.SecretKey)
		out.S3 = &s3
	}
	return &out
}

// MaskAPIKey masks the API key for display
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
