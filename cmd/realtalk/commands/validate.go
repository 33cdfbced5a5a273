package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/realtalk/pkg/cli"
	"github.com/haivivi/realtalk/pkg/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON value against a JSON Schema",
	Long: `Validate a JSON (or YAML) value against a JSON Schema.

Numbers given as numeric strings are accepted where the schema expects a
number or integer. The command exits non-zero when the value does not match.

Examples:
  realtalk validate --schema tool.schema.json --value args.json
  echo '{"city":"Paris"}' | realtalk validate --schema tool.schema.json --value -`,
	RunE: runValidate,
}

var (
	validateSchemaFile string
	validateValueFile  string
)

func init() {
	validateCmd.Flags().StringVar(&validateSchemaFile, "schema", "", "schema file (JSON or YAML, required)")
	validateCmd.Flags().StringVar(&validateValueFile, "value", "-", `value file (JSON or YAML, "-" for stdin)`)
	validateCmd.MarkFlagRequired("schema")
}

func runValidate(cmd *cobra.Command, args []string) error {
	var rawSchema json.RawMessage
	if err := cli.LoadRequest(validateSchemaFile, &rawSchema); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	s, err := schema.Parse(rawSchema)
	if err != nil {
		return err
	}

	var rawValue json.RawMessage
	if err := cli.LoadRequest(validateValueFile, &rawValue); err != nil {
		return fmt.Errorf("load value: %w", err)
	}
	value, err := schema.DecodeValue(rawValue)
	if err != nil {
		return err
	}

	err = schema.Validate(value, s)
	var verr *schema.ValidationError
	switch {
	case err == nil:
		cli.PrintSuccess("Valid")
		return nil
	case errors.As(err, &verr):
		if outputJSON {
			outputResult(verr)
		} else {
			printValidationError(verr, 0)
		}
		return errors.New("value does not match schema")
	default:
		return err
	}
}

func printValidationError(e *schema.ValidationError, depth int) {
	fmt.Printf("%s%s [%s] %s\n", strings.Repeat("  ", depth), e.Path, e.Kind, e.Message)
	for _, cause := range e.Causes {
		printValidationError(cause, depth+1)
	}
}
