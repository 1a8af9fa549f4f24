package fitjob

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/forgeff/internal/domain/chem"
	"github.com/turtacn/forgeff/internal/domain/dataset"
	"github.com/turtacn/forgeff/internal/domain/forcefield"
	"github.com/turtacn/forgeff/internal/domain/forcefield/sage"
	"github.com/turtacn/forgeff/internal/fitting"
	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/forgeff/pkg/errors"
)

// Service exposes fit-run use cases to the HTTP, CLI and worker surfaces.
type Service interface {
	// Submit validates a request, persists a queued run and enqueues it.
	Submit(ctx context.Context, req FitRequest) (*FitRun, error)
	// Get returns one run by id.
	Get(ctx context.Context, id string) (*FitRun, error)
	// List returns runs, newest first.
	List(ctx context.Context, limit, offset int) ([]*FitRun, error)
	// Execute runs a queued fit to completion and records the outcome.
	Execute(ctx context.Context, id string) (*FitRun, error)
	// Labels returns the parameter assignment of a molecule under a force
	// field, consulting the cache first.
	Labels(ctx context.Context, smiles, forceFieldRef string) (map[string]map[string]string, error)
}

type service struct {
	repo    Repository
	queue   Queue
	store   DocumentStore
	cache   LabelCache
	metrics Metrics
	log     logging.Logger

	now func() time.Time
}

// NewService wires a fit service. queue, store, cache and metrics may be nil
// for in-process use; Submit then executes synchronously and Execute skips
// artifact upload.
func NewService(repo Repository, queue Queue, store DocumentStore, cache LabelCache, metrics Metrics, log logging.Logger) Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &service{
		repo:    repo,
		queue:   queue,
		store:   store,
		cache:   cache,
		metrics: metrics,
		log:     log.Named("fitjob"),
		now:     time.Now,
	}
}

func (s *service) Submit(ctx context.Context, req FitRequest) (*FitRun, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	run := &FitRun{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Request:   req,
		CreatedAt: s.now().UTC(),
	}
	run.UpdatedAt = run.CreatedAt
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "persist fit run")
	}
	s.log.Info("fit run submitted",
		logging.String("run_id", run.ID),
		logging.String("smiles", req.SMILES))

	if s.queue == nil {
		return s.Execute(ctx, run.ID)
	}
	if err := s.queue.EnqueueRun(ctx, run.ID); err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
		run.UpdatedAt = s.now().UTC()
		if uerr := s.repo.Update(ctx, run); uerr != nil {
			s.log.Error("mark run failed after enqueue error", logging.Err(uerr))
		}
		return nil, errors.Wrap(err, errors.CodeQueueError, "enqueue fit run")
	}
	return run, nil
}

func (s *service) Get(ctx context.Context, id string) (*FitRun, error) {
	run, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, errors.Newf(errors.CodeFitRunNotFound, "fit run %s", id)
	}
	return run, nil
}

func (s *service) List(ctx context.Context, limit, offset int) ([]*FitRun, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *service) Execute(ctx context.Context, id string) (*FitRun, error) {
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status == StatusRunning || run.Status == StatusSucceeded {
		return nil, errors.Newf(errors.CodeConflict, "fit run %s is %s", id, run.Status)
	}

	run.Status = StatusRunning
	run.Error = ""
	run.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, run); err != nil {
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "mark run running")
	}

	res, report, execErr := s.execute(ctx, run)
	run.UpdatedAt = s.now().UTC()
	if execErr != nil {
		run.Status = StatusFailed
		run.Error = execErr.Error()
		if uerr := s.repo.Update(ctx, run); uerr != nil {
			s.log.Error("record run failure", logging.Err(uerr))
		}
		s.log.Error("fit run failed", logging.String("run_id", run.ID), logging.Err(execErr))
		return run, execErr
	}

	run.Status = StatusSucceeded
	run.PhysInitial = res.PhysInitial
	run.PhysFinal = res.PhysFinal
	run.ChemInitial = res.ChemInitial
	run.ChemFinal = res.ChemFinal
	run.Sweeps = res.Sweeps
	run.Report = report
	if err := s.repo.Update(ctx, run); err != nil {
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "record run result")
	}
	s.log.Info("fit run succeeded",
		logging.String("run_id", run.ID),
		logging.Float64("physical_initial", res.PhysInitial),
		logging.Float64("physical_final", res.PhysFinal),
		logging.Int("accepted", len(res.Accepted)))
	return run, nil
}

func (s *service) execute(ctx context.Context, run *FitRun) (*fitting.Result, string, error) {
	req := &run.Request

	ff, err := s.loadForceField(ctx, req.ForceFieldRef)
	if err != nil {
		return nil, "", err
	}

	d, err := buildDataset(req)
	if err != nil {
		return nil, "", err
	}

	strat, err := req.Strategy()
	if err != nil {
		return nil, "", err
	}
	objs, err := req.ObjectiveMap(d)
	if err != nil {
		return nil, "", err
	}

	res, err := fitting.NewOptimizer(s.log).Run(ctx, ff, d, strat, objs)
	if err != nil {
		return nil, "", err
	}
	report := fitting.BuildReport(res).String()

	if s.store != nil {
		var buf bytes.Buffer
		if err := forcefield.Save(&buf, res.ForceField); err != nil {
			return nil, "", err
		}
		key := "results/" + run.ID + ".offxml"
		if err := s.store.Put(ctx, key, buf.Bytes(), "application/xml"); err != nil {
			return nil, "", errors.Wrap(err, errors.CodeObjectStoreError, "store fitted document")
		}
		run.ResultRef = key
	}
	return res, report, nil
}

func (s *service) Labels(ctx context.Context, smiles, forceFieldRef string) (map[string]map[string]string, error) {
	key := forceFieldRef + "|" + smiles
	if s.cache != nil {
		if labels, ok, err := s.cache.GetLabels(ctx, key); err != nil {
			s.log.Warn("label cache read failed", logging.Err(err))
		} else if ok {
			if s.metrics != nil {
				s.metrics.LabelCacheHit()
			}
			return labels, nil
		}
		if s.metrics != nil {
			s.metrics.LabelCacheMiss()
		}
	}

	g, err := chem.ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	ff, err := s.loadForceField(ctx, forceFieldRef)
	if err != nil {
		return nil, err
	}

	labels := make(map[string]map[string]string)
	for kind := forcefield.ModelBonds; kind <= forcefield.ModelVdW; kind++ {
		sec, err := ff.SectionFor(kind)
		if err != nil {
			continue
		}
		assigned := chem.LabelHierarchy(g, sec.Hierarchy())
		if len(assigned) == 0 {
			continue
		}
		labels[kind.String()] = map[string]string(assigned)
	}

	if s.cache != nil {
		if err := s.cache.SetLabels(ctx, key, labels); err != nil {
			s.log.Warn("label cache write failed", logging.Err(err))
		}
	}
	return labels, nil
}

func (s *service) loadForceField(ctx context.Context, ref string) (*forcefield.ForceField, error) {
	if ref == "" {
		return sage.Load()
	}
	if s.store == nil {
		return nil, errors.Newf(errors.CodeInvalidParam, "no document store configured for force field %q", ref)
	}
	data, err := s.store.Get(ctx, ref)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeObjectStoreError, "load force field "+ref)
	}
	return forcefield.Load(bytes.NewReader(data))
}

func buildDataset(req *FitRequest) (*dataset.Dataset, error) {
	positions, err := dataset.ParseXYZ(strings.NewReader(req.PositionsXYZ))
	if err != nil {
		return nil, err
	}
	gradients, err := dataset.ParseXYZ(strings.NewReader(req.GradientsXYZ))
	if err != nil {
		return nil, err
	}
	entry, err := dataset.NewEntry(req.SMILES, positions, gradients)
	if err != nil {
		return nil, err
	}
	d := dataset.New()
	if err := d.Add(entry); err != nil {
		return nil, err
	}
	return d, nil
}

func validateRequest(req *FitRequest) error {
	if req.SMILES == "" {
		return errors.Newf(errors.CodeInvalidParam, "smiles is required")
	}
	if req.PositionsXYZ == "" || req.GradientsXYZ == "" {
		return errors.Newf(errors.CodeInvalidParam, "positions_xyz and gradients_xyz are required")
	}
	if len(req.Models) == 0 {
		return errors.Newf(errors.CodeInvalidParam, "models must name at least one parameter id")
	}
	if len(req.Symbols) == 0 {
		return errors.Newf(errors.CodeInvalidParam, "symbols must name at least one term symbol")
	}
	for _, o := range req.Objectives {
		if _, err := fitting.ParseObjectiveKind(o.Kind); err != nil {
			return errors.Wrap(err, errors.CodeInvalidParam, "objectives")
		}
	}
	return nil
}
