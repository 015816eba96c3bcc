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
	ErrCodeValidation      ErrorCode = "COMMON_010"
	ErrCodeSerialization   ErrorCode = "COMMON_011"
	ErrCodeConfig          ErrorCode = "COMMON_017"
	ErrCodeNotImplemented  ErrorCode = "COMMON_016"
	ErrCodeExternalService ErrorCode = "COMMON_014"
)

// Aliases used throughout the code base.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConfig       = ErrCodeConfig
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Database Error Codes
const (
	ErrCodeDatabaseError     ErrorCode = "DB_001"
	ErrCodeDatabaseNotFound  ErrorCode = "DB_002"
	ErrCodeQueryFailed       ErrorCode = "DB_003"
	ErrCodeInvalidColumn     ErrorCode = "DB_004"
	ErrCodeMigrationFailed   ErrorCode = "DB_005"
	ErrCodeUnsupportedDriver ErrorCode = "DB_006"
	ErrCodeCacheError        ErrorCode = "DB_007"
)

// Molecule Error Codes
const (
	ErrCodeMoleculeInvalidSMILES ErrorCode = "MOL_001"
	ErrCodeMoleculeNil           ErrorCode = "MOL_002"
	ErrCodeUnsupportedElement    ErrorCode = "MOL_003"
	ErrCodeDescriptorFailed      ErrorCode = "MOL_004"
	ErrCodeDescriptorUnknown     ErrorCode = "MOL_005"
)

// Dataset Error Codes
const (
	ErrCodeColumnNotFound  ErrorCode = "DATA_001"
	ErrCodeEmptyTable      ErrorCode = "DATA_002"
	ErrCodeDuplicateColumn ErrorCode = "DATA_003"
)

// Export Error Codes
const (
	ErrCodeExportFailed  ErrorCode = "EXP_001"
	ErrCodeStorageFailed ErrorCode = "EXP_002"
	ErrCodeMetricsFailed ErrorCode = "EXP_003"
	ErrCodeBuildLocked   ErrorCode = "EXP_004"
)

// ErrorCodeMessage maps each code to its default message.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:        "internal error",
	ErrCodeBadRequest:      "invalid parameter",
	ErrCodeNotFound:        "resource not found",
	ErrCodeValidation:      "validation failed",
	ErrCodeSerialization:   "serialization failed",
	ErrCodeConfig:          "invalid configuration",
	ErrCodeNotImplemented:  "not implemented",
	ErrCodeExternalService: "external service failure",

	ErrCodeDatabaseError:     "database error",
	ErrCodeDatabaseNotFound:  "database file not found",
	ErrCodeQueryFailed:       "query failed",
	ErrCodeInvalidColumn:     "column is not part of the schema",
	ErrCodeMigrationFailed:   "schema migration failed",
	ErrCodeUnsupportedDriver: "unsupported database driver",
	ErrCodeCacheError:        "cache failure",

	ErrCodeMoleculeInvalidSMILES: "invalid SMILES",
	ErrCodeMoleculeNil:           "molecule is nil",
	ErrCodeUnsupportedElement:    "unsupported element",
	ErrCodeDescriptorFailed:      "descriptor computation failed",
	ErrCodeDescriptorUnknown:     "unknown descriptor",

	ErrCodeColumnNotFound:  "column not found",
	ErrCodeEmptyTable:      "table is empty",
	ErrCodeDuplicateColumn: "duplicate column",

	ErrCodeExportFailed:  "export failed",
	ErrCodeStorageFailed: "object storage failure",
	ErrCodeMetricsFailed: "metrics export failed",
	ErrCodeBuildLocked:   "another build holds the output lock",
}

// ErrorCodeExitStatus maps module prefixes to CLI exit statuses.
var ErrorCodeExitStatus = map[string]int{
	"COMMON": 1,
	"DB":     3,
	"MOL":    4,
	"DATA":   5,
	"EXP":    6,
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// ExitStatusForCode returns the process exit status for an ErrorCode.
// Configuration errors exit with 2 so wrappers can tell them apart.
func ExitStatusForCode(code ErrorCode) int {
	if code == CodeOK {
		return 0
	}
	if code == ErrCodeConfig {
		return 2
	}
	if status, ok := ErrorCodeExitStatus[ModuleForCode(code)]; ok {
		return status
	}
	return 1
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
