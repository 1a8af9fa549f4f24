package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(CodeForceFieldParseFailed, "malformed Bonds section")
	assert.Equal(t, CodeForceFieldParseFailed, err.Code)
	assert.Equal(t, "malformed Bonds section", err.Message)
	assert.NotEmpty(t, err.Stack)
	assert.Equal(t, "[FF_001] malformed Bonds section", err.Error())
}

func TestNewf(t *testing.T) {
	err := Newf(CodeFitRunNotFound, "run %s not found", "abc")
	assert.Equal(t, "run abc not found", err.Message)
}

func TestWithDetail(t *testing.T) {
	base := New(CodeDatasetInvalidXYZ, "bad coordinate row")
	detailed := base.WithDetail("line=4")
	assert.Empty(t, base.Detail, "receiver must not be mutated")
	assert.Equal(t, "line=4", detailed.Detail)
	assert.Equal(t, "[DATA_001] bad coordinate row: line=4", detailed.Error())

	var nilErr *AppError
	assert.Nil(t, nilErr.WithDetail("x"))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))

	cause := stderrors.New("connection refused")
	err := Wrap(cause, CodeDBConnectionError, "failed to reach database")
	assert.Equal(t, CodeDBConnectionError, err.Code)
	assert.ErrorIs(t, err, cause)
}

func TestWrapPreservesCodeForUnknown(t *testing.T) {
	inner := New(CodeFitNotConverged, "line search stalled")
	outer := Wrap(inner, CodeUnknown, "fit failed")
	assert.Equal(t, CodeFitNotConverged, outer.Code)
}

func TestIsCode(t *testing.T) {
	inner := New(CodeChemInvalidSMARTS, "unbalanced bracket")
	wrapped := fmt.Errorf("labeling bonds: %w", inner)
	assert.True(t, IsCode(wrapped, CodeChemInvalidSMARTS))
	assert.False(t, IsCode(wrapped, CodeChemInvalidSMILES))
	assert.False(t, IsCode(nil, CodeChemInvalidSMARTS))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(New(CodeFitRunNotFound, "gone")))
	assert.True(t, IsNotFound(NotFound("missing")))
	assert.False(t, IsNotFound(New(CodeInternal, "boom")))
	assert.False(t, IsNotFound(nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, CodeCacheError, GetCode(New(CodeCacheError, "redis down")))
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, CodeDatasetAtomMismatch.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, CodeFitRunNotFound.HTTPStatus())
	assert.Equal(t, http.StatusNotImplemented, CodeChemMatchUnsupported.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, CodeUnknown.HTTPStatus())
}

func TestModule(t *testing.T) {
	assert.Equal(t, "CHEM", CodeChemInvalidSMILES.Module())
	assert.Equal(t, "INFRA", CodeQueueError.Module())
	assert.Equal(t, "OK", CodeOK.Module())
}
