// Package engine drives the analysis pipeline: fetch, filter, per-language
// analysis, complexity, aggregation. It owns the workspace lifecycle and the
// progress stream's terminal frame.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/christikaes/macaroni-arch/internal/analyzer"
	"github.com/christikaes/macaroni-arch/internal/complexity"
	"github.com/christikaes/macaroni-arch/internal/config"
	"github.com/christikaes/macaroni-arch/internal/dsm"
	"github.com/christikaes/macaroni-arch/internal/errors"
	"github.com/christikaes/macaroni-arch/internal/fetch"
	"github.com/christikaes/macaroni-arch/internal/filter"
	"github.com/christikaes/macaroni-arch/internal/logging"
	"github.com/christikaes/macaroni-arch/internal/progress"
	"github.com/christikaes/macaroni-arch/internal/source"
)

// Engine runs analyses end to end.
type Engine struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *analyzer.Registry
	calc     *complexity.Calculator
	fetcher  *fetch.Fetcher
}

// New creates an engine with the default analyzer registry.
func New(cfg *config.Config, logger *logging.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		registry: analyzer.Default(),
		calc:     complexity.NewCalculator(),
		fetcher:  fetch.New(logger, cfg.CloneDepth),
	}
}

// Analyze fetches the repository at url, runs the pipeline, and closes sink
// with a terminal complete or error frame. The returned payload matches the
// one delivered on the sink.
func (e *Engine) Analyze(ctx context.Context, url string, sink *progress.Sink) (*dsm.Payload, error) {
	sink.Send("Fetching repository")

	fetched, err := e.fetcher.Fetch(ctx, url, sink)
	if err != nil {
		sink.Fail(err.Error())
		return nil, err
	}
	defer fetched.Cleanup()

	if e.cfg.MaxRepoSizeBytes > 0 {
		size, sizeErr := fetch.TreeSize(fetched.Root)
		if sizeErr == nil && size > e.cfg.MaxRepoSizeBytes {
			err := errors.New(errors.RepoTooLarge,
				fmt.Sprintf("repository is %d bytes, cap is %d", size, e.cfg.MaxRepoSizeBytes), nil)
			sink.Fail(err.Error())
			return nil, err
		}
	}

	payload, err := e.run(ctx, fetched.Root, fetched.Branch, fetched.Files, sink)
	if err != nil {
		sink.Fail(err.Error())
		return nil, err
	}

	sink.Complete(payload)
	return payload, nil
}

// AnalyzeDir runs the pipeline over an already-materialised tree, bypassing
// the fetch phase. files must be repo-relative forward-slash paths.
func (e *Engine) AnalyzeDir(ctx context.Context, root, branch string, files []string, sink *progress.Sink) (*dsm.Payload, error) {
	payload, err := e.run(ctx, root, branch, files, sink)
	if err != nil {
		sink.Fail(err.Error())
		return nil, err
	}
	sink.Complete(payload)
	return payload, nil
}

func (e *Engine) run(ctx context.Context, root, branch string, files []string, sink *progress.Sink) (*dsm.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New(errors.Cancelled, "analysis cancelled", err)
	}

	cfg := *e.cfg
	override, err := config.LoadOverride(root)
	if err != nil {
		e.logger.Warn("Ignoring malformed repo override", logging.Fields{"error": err.Error()})
		override = nil
	}
	extraExcluded := cfg.Apply(override)

	sink.Send("Filtering files")
	buckets := filter.New(filter.Options{
		IncludeTests:      cfg.IncludeTests,
		ExtraExcludedDirs: extraExcluded,
	}, e.logger).Partition(files)

	admitted := flattenBuckets(buckets)
	sink.Send(fmt.Sprintf("Analyzing %d files", len(admitted)))

	sources, err := source.NewCache(root, 0)
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to create source cache", err)
	}

	fastPath := cfg.LargeRepoThreshold > 0 && len(admitted) > cfg.LargeRepoThreshold
	if fastPath {
		sink.Send("Large repository: using fast dependency weights")
	}

	edges := make(analyzer.Edges)
	for _, tag := range sortedTags(buckets) {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(errors.Cancelled, "analysis cancelled", err)
		}

		a, ok := e.registry.For(tag)
		if !ok {
			sink.Send(fmt.Sprintf("No analyzer for %s files, skipping %d files", tag, len(buckets[tag])))
			continue
		}

		sink.Send(fmt.Sprintf("Resolving %s dependencies", tag))
		langEdges, err := a.AnalyzeAll(ctx, &analyzer.Request{
			Root:            root,
			Files:           buckets[tag],
			FastPath:        fastPath,
			TypeOnlyImports: cfg.IncludeTypeOnlyImports,
			Sources:         sources,
			Logger:          e.logger,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.New(errors.Cancelled, "analysis cancelled", ctx.Err())
			}
			// a whole-language failure skips that language, not the run
			e.logger.Error("Language analysis failed", logging.Fields{
				"language": tag,
				"error":    err.Error(),
			})
			continue
		}
		for from, targets := range langEdges {
			for to, weight := range targets {
				edges.Add(from, to, weight)
			}
		}
	}

	sink.Send("Computing complexity")
	scores, err := e.complexityScores(ctx, admitted, sources)
	if err != nil {
		return nil, err
	}

	sink.Send("Building matrix")
	agg := dsm.NewAggregator(sources, e.logger, cfg.Workers)
	payload, err := agg.Aggregate(ctx, admitted, map[string]map[string]int(edges), scores, branch)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.New(errors.Cancelled, "analysis cancelled", ctx.Err())
		}
		return nil, errors.New(errors.InternalError, "aggregation failed", err)
	}
	return payload, nil
}

// complexityScores computes per-file scores with a bounded worker pool.
// Unreadable or unparseable files score 0.
func (e *Engine) complexityScores(ctx context.Context, files []string, sources *source.Cache) (map[string]int, error) {
	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	scores := make(map[string]int, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, f := range files {
		file := f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			score := 0
			src, err := sources.Load(file)
			if err != nil {
				e.logger.Warn("Failed to read file for complexity", logging.Fields{
					"file":  file,
					"error": err.Error(),
				})
			} else {
				score = e.calc.Score(gctx, file, src)
			}

			mu.Lock()
			scores[file] = score
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.New(errors.Cancelled, "analysis cancelled", ctx.Err())
		}
		return nil, errors.New(errors.InternalError, "complexity pass failed", err)
	}
	return scores, nil
}

// flattenBuckets merges the per-language buckets back into one sorted list.
func flattenBuckets(buckets map[string][]string) []string {
	var all []string
	for _, files := range buckets {
		all = append(all, files...)
	}
	sort.Strings(all)
	return all
}

func sortedTags(buckets map[string][]string) []string {
	tags := make([]string, 0, len(buckets))
	for tag := range buckets {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
