package errors

import "strings"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal        ErrorCode = "COMMON_001"
	ErrCodeBadRequest      ErrorCode = "COMMON_002"
	ErrCodeNotFound        ErrorCode = "COMMON_005"
	ErrCodeTimeout         ErrorCode = "COMMON_009"
	ErrCodeValidation      ErrorCode = "COMMON_010"
	ErrCodeSerialization   ErrorCode = "COMMON_011"
	ErrCodeCacheError      ErrorCode = "COMMON_013"
	ErrCodeExternalService ErrorCode = "COMMON_014"
	ErrCodeStorageError    ErrorCode = "COMMON_017"
	ErrCodeCanceled        ErrorCode = "COMMON_018"
)

// Aliases used by call sites that predate the prefixed names.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Molecule Module Error Codes
const (
	ErrCodeMoleculeInvalidSMILES       ErrorCode = "MOL_001"
	ErrCodeMoleculeInvalidFormat       ErrorCode = "MOL_003"
	ErrCodeMoleculeParsingFailed       ErrorCode = "MOL_006"
	ErrCodeFingerprintGenerationFailed ErrorCode = "MOL_007"
	ErrCodeSimilarityThresholdInvalid  ErrorCode = "MOL_010"
	ErrCodeMoleculeConversionFailed    ErrorCode = "MOL_011"
)

// KEGG Fetcher Error Codes
const (
	ErrCodeKEGGRequestFailed ErrorCode = "KEGG_001"
	ErrCodeKEGGNoData        ErrorCode = "KEGG_002"
	ErrCodeKEGGStatus        ErrorCode = "KEGG_003"
	ErrCodeKEGGCircuitOpen   ErrorCode = "KEGG_004"
	ErrCodeKEGGEntryInvalid  ErrorCode = "KEGG_005"
)

// Run (input/output) Error Codes
const (
	ErrCodeInputUnreadable ErrorCode = "RUN_001"
	ErrCodeOutputFailed    ErrorCode = "RUN_002"
	ErrCodeRenderFailed    ErrorCode = "RUN_003"
	ErrCodePublishFailed   ErrorCode = "RUN_004"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:           true,
	ErrCodeExternalService:   true,
	ErrCodeKEGGRequestFailed: true,
	ErrCodeKEGGNoData:        true,
	ErrCodeKEGGStatus:        true,
	ErrCodeKEGGCircuitOpen:   true,
}

// ErrorCodeExitStatus maps ErrorCodes to process exit statuses used by the CLI.
var ErrorCodeExitStatus = map[ErrorCode]int{
	ErrCodeBadRequest:                 2,
	ErrCodeValidation:                 2,
	ErrCodeMoleculeInvalidSMILES:      2,
	ErrCodeSimilarityThresholdInvalid: 2,
	ErrCodeInputUnreadable:            3,
	ErrCodeOutputFailed:               4,
	ErrCodeRenderFailed:               4,
	ErrCodePublishFailed:              4,
	ErrCodeCanceled:                   130,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:        "internal error",
	ErrCodeBadRequest:      "bad request",
	ErrCodeNotFound:        "resource not found",
	ErrCodeTimeout:         "request timeout",
	ErrCodeValidation:      "validation failed",
	ErrCodeSerialization:   "serialization failed",
	ErrCodeCacheError:      "cache error",
	ErrCodeExternalService: "external service error",
	ErrCodeStorageError:    "object storage error",
	ErrCodeCanceled:        "operation canceled",

	ErrCodeMoleculeInvalidSMILES:       "invalid SMILES format",
	ErrCodeMoleculeInvalidFormat:       "unsupported molecule format",
	ErrCodeMoleculeParsingFailed:       "failed to parse molecule",
	ErrCodeFingerprintGenerationFailed: "failed to generate fingerprint",
	ErrCodeSimilarityThresholdInvalid:  "invalid similarity threshold",
	ErrCodeMoleculeConversionFailed:    "molecule format conversion failed",

	ErrCodeKEGGRequestFailed: "KEGG request failed",
	ErrCodeKEGGNoData:        "no data returned by KEGG",
	ErrCodeKEGGStatus:        "unexpected KEGG response status",
	ErrCodeKEGGCircuitOpen:   "KEGG circuit breaker open",
	ErrCodeKEGGEntryInvalid:  "malformed KEGG entry",

	ErrCodeInputUnreadable: "input file unreadable",
	ErrCodeOutputFailed:    "failed to write output",
	ErrCodeRenderFailed:    "failed to render structure grid",
	ErrCodePublishFailed:   "failed to publish output",
}

// ExitStatusForCode returns the process exit status for an ErrorCode.
func ExitStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeExitStatus[code]; ok {
		return status
	}
	return 1
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
