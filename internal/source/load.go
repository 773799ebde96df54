package source

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bds-unify/internal/fetcher"
)

// LoadAll loads the planned sources concurrently and returns one Result per
// source in processing order. A source that fails contributes no records;
// its Result carries the reason. Only cancellation of ctx is returned as an
// error.
func LoadAll(ctx context.Context, reg *Registry, o *fetcher.Opener, specs []Spec, concurrency int) ([]Result, error) {
	planned, err := reg.Plan(specs)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(planned))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, concurrency))

	for i, spec := range planned {
		g.Go(func() error {
			results[i] = loadOne(gctx, reg, o, spec)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "source: load cancelled")
	}
	return results, nil
}

func loadOne(ctx context.Context, reg *Registry, o *fetcher.Opener, spec Spec) Result {
	log := zap.L().With(
		zap.String("component", "source"),
		zap.String("source", spec.Name),
		zap.String("location", spec.Location),
	)
	res := Result{Source: spec.Name, Location: spec.Location}

	loader, err := reg.Get(spec.Name)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}

	exists, err := o.Exists(spec.Location)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		log.Error("source check failed", zap.Error(err))
		return res
	}
	if !exists {
		if spec.Optional {
			res.Status = StatusSkipped
			log.Info("optional source not present, skipping")
			return res
		}
		res.Status = StatusMissing
		res.Err = eris.Errorf("source: %s not found at %s", spec.Name, spec.Location)
		log.Warn("source file not found")
		return res
	}

	start := time.Now()
	records, err := loader.Load(ctx, o, spec.Location)
	if err != nil {
		res.Status = StatusFailed
		res.Err = eris.Wrapf(err, "source: load %s", spec.Name)
		log.Error("source load failed", zap.Error(err))
		return res
	}

	res.Records = records
	if len(records) == 0 {
		res.Status = StatusEmpty
		log.Warn("source returned no records")
		return res
	}

	res.Status = StatusOK
	log.Info("loaded source",
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res
}
