package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/realtalk/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

Contexts allow you to manage multiple API configurations,
similar to kubectl's context management.

Configuration is stored in ~/.realtalk/realtalk/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Long: `Add a new context with the specified name. Adding an existing name
replaces it.

Example:
  realtalk config add-context myctx --api-key YOUR_API_KEY
  realtalk config add-context rtc --api-key KEY --transport webrtc --voice marin
  realtalk config add-context minio --api-key KEY \
      --s3-endpoint http://localhost:9000 --s3-access-key AK --s3-secret-key SK --s3-path-style`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		f := cmd.Flags()

		apiKey, _ := f.GetString("api-key")
		if apiKey == "" {
			return fmt.Errorf("--api-key is required")
		}
		transport, _ := f.GetString("transport")
		switch transport {
		case "", "ws", "websocket", "webrtc":
		default:
			return fmt.Errorf("--transport must be websocket or webrtc, got %q", transport)
		}

		ctx := &cli.Context{APIKey: apiKey, Transport: transport}
		ctx.BaseURL, _ = f.GetString("base-url")
		ctx.Organization, _ = f.GetString("organization")
		ctx.Project, _ = f.GetString("project")
		ctx.Model, _ = f.GetString("model")
		ctx.Voice, _ = f.GetString("voice")
		ctx.Beta, _ = f.GetBool("beta")
		ctx.StoreDir, _ = f.GetString("store-dir")

		s3 := &cli.S3Credentials{}
		s3.Endpoint, _ = f.GetString("s3-endpoint")
		s3.Region, _ = f.GetString("s3-region")
		s3.AccessKey, _ = f.GetString("s3-access-key")
		s3.SecretKey, _ = f.GetString("s3-secret-key")
		s3.PathStyle, _ = f.GetBool("s3-path-style")
		if s3.AccessKey != "" || s3.Endpoint != "" {
			ctx.S3 = s3
		}

		if err := getConfig().AddContext(name, ctx); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q added successfully", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getConfig().DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getConfig().UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", args[0])
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context [name]",
	Short: "Display the current context, or the named one in detail",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if len(args) == 0 {
			if cfg.CurrentContext == "" {
				fmt.Println("No current context set")
				return nil
			}
			fmt.Println(cfg.CurrentContext)
			return nil
		}
		ctx, err := cfg.GetContext(args[0])
		if err != nil {
			return err
		}
		return outputResult(ctx.Masked())
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if len(cfg.Contexts) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tTRANSPORT\tMODEL\tVOICE")
		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", current, name,
				orDefault(ctx.Transport), orDefault(ctx.Model), orDefault(ctx.Voice))
		}
		return w.Flush()
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View the configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		view := struct {
			Path           string                  `json:"path"`
			CurrentContext string                  `json:"current_context,omitempty"`
			Contexts       map[string]*cli.Context `json:"contexts,omitempty"`
		}{
			Path:           cfg.Path(),
			CurrentContext: cfg.CurrentContext,
			Contexts:       make(map[string]*cli.Context, len(cfg.Contexts)),
		}
		for name, ctx := range cfg.Contexts {
			view.Contexts[name] = ctx.Masked()
		}
		return outputResult(view)
	},
}

func orDefault(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}

func init() {
	f := configAddContextCmd.Flags()
	f.String("api-key", "", "API key (required)")
	f.String("base-url", "", "realtime endpoint override (http, https, ws or wss)")
	f.String("organization", "", "OpenAI organization ID")
	f.String("project", "", "OpenAI project ID")
	f.String("model", "", "Default realtime model")
	f.String("voice", "", "Default output voice")
	f.String("transport", "", "Default transport: websocket or webrtc")
	f.Bool("beta", false, "Use the beta protocol dialect")
	f.String("store-dir", "", "Transcript store directory")
	f.String("s3-endpoint", "", "S3-compatible endpoint for transcript export")
	f.String("s3-region", "", "S3 region")
	f.String("s3-access-key", "", "S3 access key")
	f.String("s3-secret-key", "", "S3 secret key")
	f.Bool("s3-path-style", false, "Use path-style S3 addressing")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
