package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bds-unify/internal/report"
	"github.com/sells-group/bds-unify/internal/validate"
)

var validateStopOnError bool

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate the companies of a unified JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := report.ReadDocument(args[0])
		if err != nil {
			return err
		}

		res := validate.New().ValidateBatch(doc.Companies, validateStopOnError)
		formatBatchResult(os.Stdout, res)
		if res.Invalid > 0 {
			return eris.Errorf("validate: %d of %d records invalid", res.Invalid, res.Total)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateStopOnError, "stop-on-error", false, "stop at the first invalid record")
	rootCmd.AddCommand(validateCmd)
}

func formatBatchResult(w io.Writer, res validate.BatchResult) {
	fmt.Fprintf(w, "Total: %d  Valid: %d  Invalid: %d\n", res.Total, res.Valid, res.Invalid)

	ids := make([]string, 0, len(res.Errors))
	for id := range res.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "\n%s\n", id)
		for _, e := range res.Errors[id] {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
}
