package checks

import (
	"slices"
	"sync"

	"github.com/mrz1836/go-pycheck/internal/config"
)

// Registry holds one runner per check kind and hands them out in execution
// order: format, lint, types, stubs
type Registry struct {
	runners map[string]Runner
	mu      sync.RWMutex
}

// NewRegistry creates a registry holding the given runners
func NewRegistry(runners ...Runner) *Registry {
	r := &Registry{runners: make(map[string]Runner)}
	for _, runner := range runners {
		r.Register(runner)
	}
	return r
}

// Register adds a runner, replacing any runner of the same kind
func (r *Registry) Register(runner Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[runner.Kind()] = runner
}

// Get returns the runner for a check kind
func (r *Registry) Get(kind string) (Runner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runner, ok := r.runners[kind]
	return runner, ok
}

// Runners returns every registered runner in execution order
func (r *Registry) Runners() []Runner {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runners := make([]Runner, 0, len(r.runners))
	for _, kind := range orderedKinds(r.runners) {
		runners = append(runners, r.runners[kind])
	}
	return runners
}

// Enabled returns the runners switched on by cfg, in execution order
func (r *Registry) Enabled(cfg *config.Config) []Runner {
	var enabled []Runner
	for _, runner := range r.Runners() {
		if cfg.Enabled(runner.Kind()) {
			enabled = append(enabled, runner)
		}
	}
	return enabled
}

// Names returns the checks-run names of every registered runner in execution order
func (r *Registry) Names() []string {
	runners := r.Runners()
	names := make([]string, 0, len(runners))
	for _, runner := range runners {
		names = append(names, runner.Name())
	}
	return names
}

// GetAllMetadata returns metadata for every registered runner in execution order
func (r *Registry) GetAllMetadata() []CheckMetadata {
	runners := r.Runners()
	metadata := make([]CheckMetadata, 0, len(runners))
	for _, runner := range runners {
		metadata = append(metadata, runner.Metadata())
	}
	return metadata
}

// orderedKinds sorts known kinds by execution order, unknown kinds last by name
func orderedKinds(runners map[string]Runner) []string {
	kinds := make([]string, 0, len(runners))
	for kind := range runners {
		kinds = append(kinds, kind)
	}
	slices.SortFunc(kinds, func(a, b string) int {
		ia, ib := kindIndex(a), kindIndex(b)
		if ia != ib {
			return ia - ib
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
	return kinds
}

func kindIndex(kind string) int {
	if idx := slices.Index(config.CheckKinds, kind); idx >= 0 {
		return idx
	}
	return len(config.CheckKinds)
}
