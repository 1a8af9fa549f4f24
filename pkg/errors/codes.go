package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared across all modules.
const (
	CodeOK                 ErrorCode = "OK"
	CodeUnknown            ErrorCode = "COMMON_000"
	CodeInternal           ErrorCode = "COMMON_001"
	CodeInvalidParam       ErrorCode = "COMMON_002"
	CodeNotFound           ErrorCode = "COMMON_003"
	CodeConflict           ErrorCode = "COMMON_004"
	CodeTimeout            ErrorCode = "COMMON_005"
	CodeValidation         ErrorCode = "COMMON_006"
	CodeSerialization      ErrorCode = "COMMON_007"
	CodeNotImplemented     ErrorCode = "COMMON_008"
	CodeServiceUnavailable ErrorCode = "COMMON_009"
)

// Chemistry module error codes.
const (
	CodeChemInvalidSMILES    ErrorCode = "CHEM_001"
	CodeChemInvalidSMARTS    ErrorCode = "CHEM_002"
	CodeChemUnmappedAtom     ErrorCode = "CHEM_003"
	CodeChemMatchUnsupported ErrorCode = "CHEM_004"
)

// Force-field module error codes.
const (
	CodeForceFieldParseFailed   ErrorCode = "FF_001"
	CodeForceFieldInvalidUnit   ErrorCode = "FF_002"
	CodeForceFieldDuplicateID   ErrorCode = "FF_003"
	CodeForceFieldUnknownKey    ErrorCode = "FF_004"
	CodeForceFieldInvalidValue  ErrorCode = "FF_005"
	CodeForceFieldWriteFailed   ErrorCode = "FF_006"
	CodeForceFieldUnknownModel  ErrorCode = "FF_007"
	CodeForceFieldUnlabeledTerm ErrorCode = "FF_008"
)

// Dataset module error codes.
const (
	CodeDatasetInvalidXYZ    ErrorCode = "DATA_001"
	CodeDatasetAtomMismatch  ErrorCode = "DATA_002"
	CodeDatasetEntryNotFound ErrorCode = "DATA_003"
	CodeDatasetEmpty         ErrorCode = "DATA_004"
)

// Fitting module error codes.
const (
	CodeFitNoCandidates     ErrorCode = "FIT_001"
	CodeFitNotConverged     ErrorCode = "FIT_002"
	CodeFitObjectiveFailed  ErrorCode = "FIT_003"
	CodeFitInvalidStrategy  ErrorCode = "FIT_004"
	CodeFitRunNotFound      ErrorCode = "FIT_005"
	CodeFitInvalidObjective ErrorCode = "FIT_006"
)

// Infrastructure error codes.
const (
	CodeDBConnectionError ErrorCode = "INFRA_001"
	CodeDBQueryError      ErrorCode = "INFRA_002"
	CodeCacheError        ErrorCode = "INFRA_003"
	CodeQueueError        ErrorCode = "INFRA_004"
	CodeObjectStoreError  ErrorCode = "INFRA_005"
)

// HTTPStatus maps an ErrorCode to the HTTP status code the API layer should
// return for it. Unknown codes map to 500.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidParam, CodeValidation, CodeChemInvalidSMILES, CodeChemInvalidSMARTS,
		CodeChemUnmappedAtom, CodeForceFieldParseFailed, CodeForceFieldInvalidUnit,
		CodeForceFieldDuplicateID, CodeForceFieldInvalidValue, CodeDatasetInvalidXYZ,
		CodeDatasetAtomMismatch, CodeFitInvalidStrategy, CodeFitInvalidObjective:
		return http.StatusBadRequest
	case CodeNotFound, CodeDatasetEntryNotFound, CodeFitRunNotFound, CodeForceFieldUnknownKey:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeNotImplemented, CodeChemMatchUnsupported:
		return http.StatusNotImplemented
	case CodeServiceUnavailable, CodeDBConnectionError, CodeQueueError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Module extracts the module prefix of the code, e.g. "CHEM" from "CHEM_001".
// Codes without an underscore return themselves.
func (c ErrorCode) Module() string {
	s := string(c)
	if i := strings.LastIndex(s, "_"); i > 0 {
		return s[:i]
	}
	return s
}
