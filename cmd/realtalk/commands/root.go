package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/realtalk/pkg/cli"
	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
	"github.com/haivivi/realtalk/pkg/transcript"
)

const appName = "realtalk"

var (
	cfgFile     string
	contextName string
	outputJSON  bool
	verbose     bool

	globalConfig *cli.Config
	globalPaths  *cli.Paths
)

var rootCmd = &cobra.Command{
	Use:   "realtalk",
	Short: "OpenAI Realtime API CLI tool",
	Long: `realtalk - A command line client for the OpenAI Realtime API.

It holds a live conversation over WebSocket or WebRTC, keeps the conversation
log consistent while events stream in, and saves transcripts locally so they
can be inspected, filtered and exported later.

Configuration is stored in ~/.realtalk/realtalk/ and supports multiple
contexts, similar to kubectl's context management.

Examples:
  # Set up a new context
  realtalk config add-context myctx --api-key YOUR_API_KEY

  # Chat over WebRTC
  realtalk -c myctx chat --transport webrtc

  # Show the assistant lines of a saved transcript
  realtalk log show SESSION_ID --query '.[] | select(.role == "assistant")'
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.realtalk/realtalk/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs and wire events)")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(logCmd)
}

func initConfig() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var err error
	globalPaths, err = cli.NewPaths(appName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing paths: %v\n", err)
		os.Exit(1)
	}
	globalConfig, err = cli.LoadConfigWithPath(appName, cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

func getConfig() *cli.Config {
	return globalConfig
}

// getContext returns the context configuration to use
func getContext() (*cli.Context, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	ctx, err := cfg.ResolveContext(contextName)
	if err != nil {
		if contextName == "" {
			return nil, fmt.Errorf("no context specified. Use -c flag or set a default context with 'realtalk config use-context'")
		}
		return nil, err
	}
	return ctx, nil
}

// optionalContext is getContext for commands that work without one.
func optionalContext() *cli.Context {
	ctx, err := getContext()
	if err != nil {
		return nil
	}
	return ctx
}

func outputResult(result any) error {
	format := cli.FormatYAML
	if outputJSON {
		format = cli.FormatJSON
	}
	return cli.Print(os.Stdout, format, result)
}

func newClient(ctx *cli.Context) (*rt.Client, error) {
	var opts []rt.Option
	if ctx.BaseURL != "" {
		opts = append(opts, rt.WithBaseURL(ctx.BaseURL))
	}
	if ctx.Organization != "" {
		opts = append(opts, rt.WithOrganization(ctx.Organization))
	}
	if ctx.Project != "" {
		opts = append(opts, rt.WithProject(ctx.Project))
	}
	if ctx.Beta {
		opts = append(opts, rt.WithBeta())
	}
	return rt.NewClient(ctx.APIKey, opts...)
}

func openStore(ctx *cli.Context) (*transcript.Badger, error) {
	dir := globalPaths.ResolveStoreDir(ctx)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return transcript.NewBadger(transcript.BadgerOptions{Dir: dir})
}

func s3Config(ctx *cli.Context) transcript.S3Config {
	if ctx == nil || ctx.S3 == nil {
		return transcript.S3Config{}
	}
	return transcript.S3Config{
		Endpoint:  ctx.S3.Endpoint,
		Region:    ctx.S3.Region,
		AccessKey: ctx.S3.AccessKey,
		SecretKey: ctx.S3.SecretKey,
		PathStyle: ctx.S3.PathStyle,
	}
}
