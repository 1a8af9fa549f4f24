package fitjob

import "context"

// Repository persists fit runs.
type Repository interface {
	Create(ctx context.Context, run *FitRun) error
	Get(ctx context.Context, id string) (*FitRun, error)
	Update(ctx context.Context, run *FitRun) error
	List(ctx context.Context, limit, offset int) ([]*FitRun, error)
}

// Queue hands a submitted run to a worker.
type Queue interface {
	EnqueueRun(ctx context.Context, runID string) error
}

// DocumentStore holds force-field documents and fit artifacts.
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// LabelCache caches parameter labelings per molecule and force field. The
// outer map key is the model name, the inner key a canonical topology tuple.
type LabelCache interface {
	GetLabels(ctx context.Context, key string) (map[string]map[string]string, bool, error)
	SetLabels(ctx context.Context, key string, labels map[string]map[string]string) error
}

// Metrics receives service-level counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	LabelCacheHit()
	LabelCacheMiss()
}
