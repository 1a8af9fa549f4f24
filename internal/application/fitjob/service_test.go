package fitjob

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/forgeff/internal/domain/dataset"
	"github.com/turtacn/forgeff/internal/fitting"
	"github.com/turtacn/forgeff/pkg/errors"
)

type memRepo struct {
	mu   sync.Mutex
	runs map[string]*FitRun
}

func newMemRepo() *memRepo { return &memRepo{runs: make(map[string]*FitRun)} }

func (r *memRepo) Create(_ context.Context, run *FitRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs[run.ID] = &cp
	return nil
}

func (r *memRepo) Get(_ context.Context, id string) (*FitRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *run
	return &cp, nil
}

func (r *memRepo) Update(_ context.Context, run *FitRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs[run.ID] = &cp
	return nil
}

func (r *memRepo) List(_ context.Context, limit, offset int) ([]*FitRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*FitRun
	for _, run := range r.runs {
		cp := *run
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memQueue struct {
	enqueued []string
	fail     bool
}

func (q *memQueue) EnqueueRun(_ context.Context, runID string) error {
	if q.fail {
		return errors.New(errors.CodeQueueError, "broker down")
	}
	q.enqueued = append(q.enqueued, runID)
	return nil
}

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: make(map[string][]byte)} }

func (s *memStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.objects[key] = data
	return nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.Newf(errors.CodeObjectStoreError, "no object %s", key)
	}
	return data, nil
}

type memCache struct {
	labels map[string]map[string]map[string]string
	hits   int
}

func newMemCache() *memCache {
	return &memCache{labels: make(map[string]map[string]map[string]string)}
}

func (c *memCache) GetLabels(_ context.Context, key string) (map[string]map[string]string, bool, error) {
	l, ok := c.labels[key]
	if ok {
		c.hits++
	}
	return l, ok, nil
}

func (c *memCache) SetLabels(_ context.Context, key string, labels map[string]map[string]string) error {
	c.labels[key] = labels
	return nil
}

type memMetrics struct {
	cacheHits   int
	cacheMisses int
}

func (m *memMetrics) LabelCacheHit()  { m.cacheHits++ }
func (m *memMetrics) LabelCacheMiss() { m.cacheMisses++ }

func demoRequest() FitRequest {
	return FitRequest{
		SMILES:       dataset.DemoSMILES,
		PositionsXYZ: dataset.DemoPositionsXYZ(),
		GradientsXYZ: dataset.DemoGradientsXYZ(),
		Models:       map[string][]string{"bonds": {"b4"}},
		Symbols:      []string{"l"},
		Tiers:        []TierSpec{{StepLimit: 1, Accept: 3}},
		MaxSweeps:    1,
	}
}

func TestSubmitQueuesRun(t *testing.T) {
	repo := newMemRepo()
	queue := &memQueue{}
	svc := NewService(repo, queue, nil, nil, nil, nil)

	run, err := svc.Submit(context.Background(), demoRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, run.Status)
	assert.Equal(t, []string{run.ID}, queue.enqueued)

	got, err := svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, got.Status)
}

func TestSubmitRejectsIncompleteRequests(t *testing.T) {
	svc := NewService(newMemRepo(), &memQueue{}, nil, nil, nil, nil)

	tests := []struct {
		name   string
		mutate func(*FitRequest)
	}{
		{"missing smiles", func(r *FitRequest) { r.SMILES = "" }},
		{"missing positions", func(r *FitRequest) { r.PositionsXYZ = "" }},
		{"missing gradients", func(r *FitRequest) { r.GradientsXYZ = "" }},
		{"no models", func(r *FitRequest) { r.Models = nil }},
		{"no symbols", func(r *FitRequest) { r.Symbols = nil }},
		{"bad objective kind", func(r *FitRequest) {
			r.Objectives = []ObjectiveSpec{{Kind: "warp", Scale: 1}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := demoRequest()
			tt.mutate(&req)
			_, err := svc.Submit(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
		})
	}
}

func TestSubmitMarksRunFailedOnEnqueueError(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &memQueue{fail: true}, nil, nil, nil, nil)

	_, err := svc.Submit(context.Background(), demoRequest())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeQueueError))

	runs, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}

func TestGetUnknownRun(t *testing.T) {
	svc := NewService(newMemRepo(), &memQueue{}, nil, nil, nil, nil)
	_, err := svc.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFitRunNotFound))
}

func TestExecuteRejectsFinishedRuns(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &memQueue{}, nil, nil, nil, nil)

	run, err := svc.Submit(context.Background(), demoRequest())
	require.NoError(t, err)

	run.Status = StatusSucceeded
	require.NoError(t, repo.Update(context.Background(), run))

	_, err = svc.Execute(context.Background(), run.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConflict))
}

func TestExecuteRecordsFailureForBadData(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &memQueue{}, nil, nil, nil, nil)

	req := demoRequest()
	req.GradientsXYZ = "2\nwrong atom count\nO 0 0 0\nH 1 0 0\n"
	run, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), run.ID)
	require.Error(t, err)

	got, gerr := svc.Get(context.Background(), run.ID)
	require.NoError(t, gerr)
	assert.Equal(t, StatusFailed, got.Status)
	assert.NotEmpty(t, got.Error)
}

func TestExecuteDemoFit(t *testing.T) {
	if testing.Short() {
		t.Skip("full demo fit is slow")
	}
	repo := newMemRepo()
	store := newMemStore()
	svc := NewService(repo, &memQueue{}, store, nil, nil, nil)

	run, err := svc.Submit(context.Background(), demoRequest())
	require.NoError(t, err)

	done, err := svc.Execute(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, done.Status)
	assert.LessOrEqual(t, done.PhysFinal, done.PhysInitial)
	assert.Equal(t, done.ChemInitial, done.ChemFinal)
	assert.Positive(t, done.Sweeps)
	assert.NotEmpty(t, done.Report)

	require.NotEmpty(t, done.ResultRef)
	doc, err := store.Get(context.Background(), done.ResultRef)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "<Bonds")
}

func TestLabelsUsesCache(t *testing.T) {
	cache := newMemCache()
	metrics := &memMetrics{}
	svc := NewService(newMemRepo(), &memQueue{}, nil, cache, metrics, nil)

	water := "[O:1]([H:2])[H:3]"
	first, err := svc.Labels(context.Background(), water, "")
	require.NoError(t, err)
	require.Contains(t, first, "bonds")
	assert.Len(t, first["bonds"], 2)
	assert.Len(t, first["angles"], 1)
	assert.Equal(t, 0, cache.hits)
	assert.Equal(t, 1, metrics.cacheMisses)

	second, err := svc.Labels(context.Background(), water, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, 1, metrics.cacheHits)
	assert.Equal(t, 1, metrics.cacheMisses)
}

func TestRequestObjectiveMap(t *testing.T) {
	req := demoRequest()
	d, err := buildDataset(&req)
	require.NoError(t, err)
	entry := d.Entries()[0]

	// No objectives falls back to the positions plus weighted-gradients pair
	// over every entry.
	m, err := req.ObjectiveMap(d)
	require.NoError(t, err)
	require.Len(t, m[""], 2)

	// Entries are addressable by SMILES and by id.
	req.Objectives = []ObjectiveSpec{
		{Kind: "positions", Scale: 1, Entry: req.SMILES},
		{Kind: "gradients", Scale: 1e-9},
	}
	m, err = req.ObjectiveMap(d)
	require.NoError(t, err)
	require.Len(t, m[entry.ID], 1)
	assert.Equal(t, fitting.ObjectivePositions, m[entry.ID][0].Kind)
	require.Len(t, m[""], 1)
	assert.Equal(t, fitting.ObjectiveGradients, m[""][0].Kind)

	req.Objectives = []ObjectiveSpec{{Kind: "gradients", Scale: 1, Entry: entry.ID}}
	m, err = req.ObjectiveMap(d)
	require.NoError(t, err)
	require.Len(t, m[entry.ID], 1)

	req.Objectives = []ObjectiveSpec{{Kind: "positions", Scale: 1, Entry: "[C:1]"}}
	_, err = req.ObjectiveMap(d)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFitInvalidObjective))

	req.Objectives = []ObjectiveSpec{{Kind: "warp", Scale: 1}}
	_, err = req.ObjectiveMap(d)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFitInvalidObjective))
}
