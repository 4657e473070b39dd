package dsm

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/christikaes/macaroni-arch/internal/hierarchy"
	"github.com/christikaes/macaroni-arch/internal/logging"
)

// SourceReader loads the contents of a repo-relative file.
type SourceReader interface {
	Load(path string) ([]byte, error)
}

// Aggregator merges per-language edge maps into the final payload.
type Aggregator struct {
	sources SourceReader
	logger  *logging.Logger
	workers int
}

// NewAggregator creates an aggregator reading file contents through sources.
// workers bounds the line-count pool; 0 means the host CPU count.
func NewAggregator(sources SourceReader, logger *logging.Logger, workers int) *Aggregator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Aggregator{sources: sources, logger: logger, workers: workers}
}

// Aggregate builds the payload for the admitted files. edges maps importer to
// target to weight; complexity carries per-file scores (missing entries mean
// "not computed"). Every edge whose target is not an admitted file is
// dropped, as are self-edges and non-positive weights.
func (a *Aggregator) Aggregate(ctx context.Context, files []string, edges map[string]map[string]int, complexity map[string]int, branch string) (*Payload, error) {
	items, ordered := hierarchy.Build(files)

	admitted := make(map[string]bool, len(ordered))
	for _, f := range ordered {
		admitted[f] = true
	}

	records := make(map[string]*FileRecord, len(ordered))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for _, f := range ordered {
		file := f
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			lineCount := 0
			source, err := a.sources.Load(file)
			if err != nil {
				a.logger.Warn("Failed to read file for line count", logging.Fields{
					"file":  file,
					"error": err.Error(),
				})
			} else {
				lineCount = CountSignificantLines(source)
			}

			record := &FileRecord{
				Complexity:   complexity[file],
				LineCount:    lineCount,
				Dependencies: buildDependencies(file, edges[file], admitted),
			}

			mu.Lock()
			records[file] = record
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Payload{
		Files:        records,
		DisplayItems: items,
		FileList:     ordered,
		Branch:       branch,
	}, nil
}

// buildDependencies turns a weight map into the sorted dependency list,
// dropping self-edges, unknown targets and non-positive weights.
func buildDependencies(file string, weights map[string]int, admitted map[string]bool) []Dependency {
	deps := make([]Dependency, 0, len(weights))
	for target, weight := range weights {
		if target == file || weight <= 0 || !admitted[target] {
			continue
		}
		deps = append(deps, Dependency{FileName: target, Dependencies: weight})
	}
	sort.Slice(deps, func(i, j int) bool {
		return deps[i].FileName < deps[j].FileName
	})
	return deps
}
