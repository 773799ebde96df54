package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bds-unify/internal/fetcher"
	"github.com/sells-group/bds-unify/internal/reconcile"
	"github.com/sells-group/bds-unify/internal/report"
	"github.com/sells-group/bds-unify/internal/source"
	"github.com/sells-group/bds-unify/internal/store"
	"github.com/sells-group/bds-unify/internal/validate"
)

var (
	unifyManifest  string
	unifySourceDir string
	unifyOutputDir string
	unifyNoStore   bool
)

var unifyCmd = &cobra.Command{
	Use:   "unify",
	Short: "Load every source, reconcile duplicates and write the unified dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if unifySourceDir != "" {
			cfg.Sources.Dir = unifySourceDir
		}
		if unifyOutputDir != "" {
			cfg.Output.Dir = unifyOutputDir
		}
		if unifyNoStore {
			cfg.Store.Driver = store.DriverNone
		}
		if err := cfg.Validate("unify"); err != nil {
			return err
		}

		ctx := cmd.Context()

		specs, err := loadSpecs(unifyManifest)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		out, err := runUnify(ctx, unifyDeps{
			store:       st,
			opener:      newOpener(),
			registry:    source.NewRegistry(),
			writer:      report.NewWriter(cfg.Output.Dir),
			concurrency: cfg.Sources.Concurrency,
		}, specs)
		if out != nil {
			formatSourceStats(os.Stdout, out.document.Metadata.Stats.Sources)
			fmt.Fprintf(os.Stdout, "\nrun %s: %d companies written to %s\n",
				out.runID, out.document.Metadata.TotalRecords, out.files.Latest)
		}
		return err
	},
}

func init() {
	unifyCmd.Flags().StringVar(&unifyManifest, "manifest", "", "source manifest YAML (default from config)")
	unifyCmd.Flags().StringVar(&unifySourceDir, "sources-dir", "", "directory holding the source exports (default from config)")
	unifyCmd.Flags().StringVar(&unifyOutputDir, "output-dir", "", "directory for the unified reports (default from config)")
	unifyCmd.Flags().BoolVar(&unifyNoStore, "no-store", false, "skip database persistence")
	rootCmd.AddCommand(unifyCmd)
}

type unifyDeps struct {
	store       store.Store
	opener      *fetcher.Opener
	registry    *source.Registry
	writer      *report.Writer
	concurrency int
}

type unifyOutcome struct {
	runID    string
	document report.Document
	files    report.Files
}

// runUnify performs one unification run and records it in the run log. A
// database failure still writes the report but fails the run.
func runUnify(ctx context.Context, deps unifyDeps, specs []source.Spec) (*unifyOutcome, error) {
	log := zap.L().With(zap.String("component", "unify"))

	planned, err := deps.registry.Plan(specs)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(planned))
	for i, s := range planned {
		names[i] = s.Name
	}

	run, err := deps.store.StartRun(ctx, names)
	if err != nil {
		return nil, eris.Wrap(err, "unify: start run")
	}
	log = log.With(zap.String("run_id", run.ID))
	log.Info("unification started", zap.Strings("sources", names))

	fail := func(err error) (*unifyOutcome, error) {
		if ferr := deps.store.FailRun(context.WithoutCancel(ctx), run.ID, err.Error()); ferr != nil {
			log.Error("failed to record run failure", zap.Error(ferr))
		}
		return nil, err
	}

	results, err := source.LoadAll(ctx, deps.registry, deps.opener, planned, deps.concurrency)
	if err != nil {
		return fail(err)
	}

	res, err := reconcile.New(validate.New()).Run(results)
	if err != nil {
		return fail(err)
	}

	dbErrors := 0
	inserted, dbErr := deps.store.UpsertCompanies(ctx, res.Valid)
	if dbErr != nil {
		dbErrors = len(res.Valid)
		log.Error("persisting companies failed", zap.Int("records", len(res.Valid)), zap.Error(dbErr))
	}

	doc := report.Build(run.ID, res.Valid, report.StatsFrom(res.Stats, inserted, dbErrors), time.Now())
	files, err := deps.writer.Write(doc)
	if err != nil {
		return fail(err)
	}
	report.LogSummary(doc)

	out := &unifyOutcome{runID: run.ID, document: doc, files: files}
	if dbErr != nil {
		_, err := fail(eris.Wrap(dbErr, "unify: persist companies"))
		return out, err
	}

	summary := store.RunSummary{
		TotalRecords:     res.Stats.TotalRecords,
		DuplicatesMerged: res.Stats.DuplicatesMerged,
		ValidationErrors: res.Stats.ValidationErrors,
		Persisted:        inserted,
		OutputFile:       files.Data,
	}
	if err := deps.store.CompleteRun(ctx, run.ID, summary); err != nil {
		return out, eris.Wrap(err, "unify: complete run")
	}
	log.Info("unification complete", zap.String("output", files.Data))
	return out, nil
}

func formatSourceStats(w io.Writer, stats []reconcile.SourceStat) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tSTATUS\tRECORDS\tERROR")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Source, s.Status, s.Records, s.Error)
	}
	tw.Flush() //nolint:errcheck
}
