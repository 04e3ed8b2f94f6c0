package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jonathan/pathway-advisor/internal/schemas"
	schemafiles "github.com/jonathan/pathway-advisor/schemas"
	"github.com/spf13/cobra"
)

var validateStateCmd = &cobra.Command{
	Use:   "validate-state <file>",
	Short: "Check a state payload file against the AgentState schema",
	Long: `Validate a JSON state snapshot offline, before appending it to a run. Uses the
same schema the store enforces when validate_payloads is enabled.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidateState,
}

func init() {
	rootCmd.AddCommand(validateStateCmd)
}

func runValidateState(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	if err := schemas.ValidateDocument(schemafiles.AgentState, data); err != nil {
		var verr *schemas.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%s is not a valid state payload: %s", args[0], verr.Summary())
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", args[0])
	return nil
}
