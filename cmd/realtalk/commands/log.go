package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/realtalk/pkg/cli"
	"github.com/haivivi/realtalk/pkg/transcript"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Manage saved conversation transcripts",
	Long: `Manage the transcripts saved by 'realtalk chat'.

Transcripts live in the store directory of the context
(default ~/.realtalk/realtalk/transcripts).`,
}

var logListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List saved transcripts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(optionalContext())
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := store.Sessions(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			return outputResult(sessions)
		}
		if len(sessions) == 0 {
			fmt.Println("No transcripts saved")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tITEMS\tCREATED\tUPDATED")
		now := time.Now()
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.ID, s.Items,
				s.CreatedAt.Local().Format(time.DateTime), cli.FormatAge(s.UpdatedAt, now))
		}
		return w.Flush()
	},
}

var logShowQuery string

var logShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a transcript",
	Long: `Show a transcript as rendered lines, or as YAML/JSON when --query or
--json is given. --query filters the item list with a jq expression.

Examples:
  realtalk log show SESSION_ID
  realtalk log show SESSION_ID --json
  realtalk log show SESSION_ID --query '[.[] | select(.type == "mcp_call") | .name]'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(optionalContext())
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if logShowQuery != "" {
			results, err := cli.Query(cmd.Context(), logShowQuery, items)
			if err != nil {
				return err
			}
			for _, r := range results {
				if err := outputResult(r); err != nil {
					return err
				}
			}
			return nil
		}
		if outputJSON {
			return outputResult(items)
		}
		styles := cli.NewItemStyles(cli.DefaultTheme)
		for _, item := range items {
			fmt.Println(styles.Render(item))
		}
		return nil
	},
}

var logExportDest string

var logExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a transcript to a directory or S3",
	Long: `Export a transcript as <id>.json to a local directory or an S3 bucket.
S3 credentials come from the context (see 'realtalk config add-context').

Examples:
  realtalk log export SESSION_ID --dest ./exports
  realtalk log export SESSION_ID --dest s3://my-bucket/transcripts`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cctx := optionalContext()
		store, err := openStore(cctx)
		if err != nil {
			return err
		}
		defer store.Close()

		sink, err := transcript.OpenSink(logExportDest, s3Config(cctx))
		if err != nil {
			return err
		}
		if err := transcript.Export(cmd.Context(), store, args[0], sink); err != nil {
			return err
		}
		cli.PrintSuccess("Exported %s to %s", transcript.FileName(args[0]), logExportDest)
		return nil
	},
}

var logImportSrc string

var logImportCmd = &cobra.Command{
	Use:   "import <id>",
	Short: "Import an exported transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cctx := optionalContext()
		store, err := openStore(cctx)
		if err != nil {
			return err
		}
		defer store.Close()

		sink, err := transcript.OpenSink(logImportSrc, s3Config(cctx))
		if err != nil {
			return err
		}
		doc, err := transcript.Import(cmd.Context(), store, args[0], sink)
		if err != nil {
			return err
		}
		cli.PrintSuccess("Imported %d items as %s", len(doc.Items), args[0])
		return nil
	},
}

var logDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(optionalContext())
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Transcript %q deleted", args[0])
		return nil
	},
}

func init() {
	logShowCmd.Flags().StringVarP(&logShowQuery, "query", "q", "", "jq expression applied to the item list")
	logExportCmd.Flags().StringVar(&logExportDest, "dest", ".", "destination directory or s3://bucket/prefix")
	logImportCmd.Flags().StringVar(&logImportSrc, "src", ".", "source directory or s3://bucket/prefix")

	logCmd.AddCommand(logListCmd)
	logCmd.AddCommand(logShowCmd)
	logCmd.AddCommand(logExportCmd)
	logCmd.AddCommand(logImportCmd)
	logCmd.AddCommand(logDeleteCmd)
}
