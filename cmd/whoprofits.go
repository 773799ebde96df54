package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/bds-unify/internal/fetcher"
	"github.com/sells-group/bds-unify/internal/source"
	"github.com/sells-group/bds-unify/internal/whoprofits"
)

var (
	wpBooths    string
	wpOutputDir string
	wpSearchURL string
	wpRate      float64
)

var whoprofitsCmd = &cobra.Command{
	Use:   "whoprofits",
	Short: "Search Who Profits for the booth list and write the whoprofits.org source file",
	Long: "Looks up every exhibitor of the booth list in the Who Profits company database " +
		"and writes who_profits_results_latest.json where the unify command expects it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		booths, err := whoprofits.LoadBooths(wpBooths)
		if err != nil {
			return err
		}

		dl := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:   cfg.Sources.UserAgent,
			Timeout:     cfg.Sources.Timeout(),
			MaxRetries:  cfg.Sources.MaxRetries,
			DefaultRate: rate.Limit(wpRate),
		})
		client := whoprofits.NewClient(dl, wpSearchURL)

		outDir := wpOutputDir
		if outDir == "" {
			outDir = whoProfitsDir()
		}

		f, files, err := runWhoProfits(cmd.Context(), client, booths, outDir, time.Now())
		if err != nil {
			return err
		}
		formatWhoProfits(os.Stdout, f, booths)
		zap.L().Info("whoprofits: results written",
			zap.String("results", files.Results),
			zap.String("latest", files.Latest),
			zap.String("summary", files.Summary),
		)
		return nil
	},
}

func init() {
	whoprofitsCmd.Flags().StringVar(&wpBooths, "booths", "", "booth list YAML (default: built-in list)")
	whoprofitsCmd.Flags().StringVar(&wpOutputDir, "output-dir", "", "directory for results (default: the whoprofits.org source location)")
	whoprofitsCmd.Flags().StringVar(&wpSearchURL, "search-url", whoprofits.DefaultSearchURL, "Who Profits search endpoint")
	whoprofitsCmd.Flags().Float64Var(&wpRate, "rate", 2, "max search requests per second")
	rootCmd.AddCommand(whoprofitsCmd)
}

// whoProfitsDir is the directory of the default whoprofits.org source file.
func whoProfitsDir() string {
	for _, s := range source.DefaultSpecs() {
		if s.Name == source.WhoProfits {
			return filepath.Join(cfg.Sources.Dir, filepath.Dir(s.Location))
		}
	}
	return cfg.Sources.Dir
}

func runWhoProfits(ctx context.Context, client *whoprofits.Client, booths []whoprofits.Booth, outDir string, now time.Time) (*whoprofits.File, whoprofits.Files, error) {
	f, err := client.Run(ctx, booths, now)
	if err != nil {
		return nil, whoprofits.Files{}, err
	}
	files, err := whoprofits.Write(outDir, f, booths, now)
	if err != nil {
		return nil, whoprofits.Files{}, err
	}
	return f, files, nil
}

func formatWhoProfits(w io.Writer, f *whoprofits.File, booths []whoprofits.Booth) {
	fmt.Fprintf(w, "Companies searched: %d\n", f.Metadata.TotalCompanies)
	fmt.Fprintf(w, "Found in Who Profits: %d\n", f.Metadata.CompaniesFound)
	fmt.Fprintf(w, "Not found: %d\n", f.Metadata.CompaniesNotFound)

	for _, b := range booths {
		e, ok := f.Results[b.Booth]
		if !ok || !e.Found {
			continue
		}
		fmt.Fprintf(w, "\nBooth %s: %s\n", b.Booth, e.CompanyName)
		for _, m := range e.Matches {
			fmt.Fprintf(w, "  - %s (%s)\n", m.CompanyName, m.Headquarters)
		}
	}
}
