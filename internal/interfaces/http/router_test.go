package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/forgeff/internal/application/fitjob"
	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/forgeff/pkg/errors"
)

type fakeService struct {
	runs      map[string]*fitjob.FitRun
	submitted []fitjob.FitRequest
	labels    map[string]map[string]string
	labelErr  error
}

func newFakeService() *fakeService {
	return &fakeService{runs: make(map[string]*fitjob.FitRun)}
}

func (s *fakeService) Submit(_ context.Context, req fitjob.FitRequest) (*fitjob.FitRun, error) {
	if req.SMILES == "" {
		return nil, errors.Newf(errors.CodeInvalidParam, "smiles is required")
	}
	s.submitted = append(s.submitted, req)
	run := &fitjob.FitRun{
		ID:        "run-1",
		Status:    fitjob.StatusQueued,
		Request:   req,
		CreatedAt: time.Now().UTC(),
	}
	s.runs[run.ID] = run
	return run, nil
}

func (s *fakeService) Get(_ context.Context, id string) (*fitjob.FitRun, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, errors.Newf(errors.CodeFitRunNotFound, "fit run %s", id)
	}
	return run, nil
}

func (s *fakeService) List(_ context.Context, _, _ int) ([]*fitjob.FitRun, error) {
	var out []*fitjob.FitRun
	for _, run := range s.runs {
		out = append(out, run)
	}
	return out, nil
}

func (s *fakeService) Execute(_ context.Context, id string) (*fitjob.FitRun, error) {
	return s.Get(context.Background(), id)
}

func (s *fakeService) Labels(_ context.Context, _, _ string) (map[string]map[string]string, error) {
	if s.labelErr != nil {
		return nil, s.labelErr
	}
	return s.labels, nil
}

func testRouter(svc fitjob.Service) http.Handler {
	return NewRouter(RouterOptions{
		Service: svc,
		Metrics: prometheus.New(),
		Version: "test",
	})
}

func TestSubmitFit(t *testing.T) {
	svc := newFakeService()
	router := testRouter(svc)

	body, _ := json.Marshal(fitjob.FitRequest{
		SMILES:       "[O:1]([H:2])[H:3]",
		PositionsXYZ: "stub",
		GradientsXYZ: "stub",
		Models:       map[string][]string{"bonds": {"b4"}},
		Symbols:      []string{"l"},
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/fits", bytes.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var run fitjob.FitRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, fitjob.StatusQueued, run.Status)
	require.Len(t, svc.submitted, 1)
}

func TestSubmitFitRejectsBadJSON(t *testing.T) {
	router := testRouter(newFakeService())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/fits", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitFitMapsAppError(t *testing.T) {
	router := testRouter(newFakeService())
	body, _ := json.Marshal(fitjob.FitRequest{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/fits", bytes.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "COMMON_002", resp.Code)
}

func TestGetFitNotFound(t *testing.T) {
	router := testRouter(newFakeService())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/fits/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListFitsAlwaysReturnsArray(t *testing.T) {
	router := testRouter(newFakeService())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/fits", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs":[]}`, rec.Body.String())
}

func TestLabelsEndpoint(t *testing.T) {
	svc := newFakeService()
	svc.labels = map[string]map[string]string{"bonds": {"0-1": "b87"}}
	router := testRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/labels?smiles=%5BO%3A1%5D(%5BH%3A2%5D)%5BH%3A3%5D", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "b87")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/labels", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	router := testRouter(newFakeService())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := testRouter(newFakeService())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "forgeff_http_requests_total")
}
