package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/bds-unify/internal/fetcher"
	"github.com/sells-group/bds-unify/internal/source"
)

var sourcesManifest string

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the sources a unify run would load, in processing order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		specs, err := loadSpecs(sourcesManifest)
		if err != nil {
			return err
		}
		planned, err := source.NewRegistry().Plan(specs)
		if err != nil {
			return err
		}
		return formatSources(os.Stdout, newOpener(), planned)
	},
}

func init() {
	sourcesCmd.Flags().StringVar(&sourcesManifest, "manifest", "", "source manifest YAML (default from config)")
	rootCmd.AddCommand(sourcesCmd)
}

func formatSources(w io.Writer, o *fetcher.Opener, specs []source.Spec) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tREQUIRED\tPRESENT\tLOCATION")
	for _, s := range specs {
		present := "remote"
		if !fetcher.IsRemote(s.Location) {
			ok, err := o.Exists(s.Location)
			if err != nil {
				return err
			}
			present = yesNo(ok)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, yesNo(!s.Optional), present, o.Resolve(s.Location))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
