// Package errors provides structured error handling for idxbench.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: configuration / component resolution errors
//   - 2XX: storage and directory errors
//   - 3XX: engine (index/taxonomy) errors
//   - 5XX: internal and teardown errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryComponent indicates pluggable-component resolution errors.
	CategoryComponent Category = "COMPONENT"
	// CategoryStorage indicates directory and file I/O errors.
	CategoryStorage Category = "STORAGE"
	// CategoryEngine indicates index/taxonomy engine errors.
	CategoryEngine Category = "ENGINE"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the run can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Configuration / component errors (100-199). These abort run-context
	// construction.
	ErrCodeUnknownComponent = "ERR_101_UNKNOWN_COMPONENT"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeComponentConfig  = "ERR_103_COMPONENT_CONFIG"
	ErrCodeBadCapability    = "ERR_104_MISSING_CAPABILITY"

	// Storage errors (200-299)
	ErrCodeDirProvision = "ERR_201_DIR_PROVISION"
	ErrCodeDirLocked    = "ERR_202_DIR_LOCKED"

	// Engine errors (300-399)
	ErrCodeIndexOpen    = "ERR_301_INDEX_OPEN"
	ErrCodeTaxonomyOpen = "ERR_302_TAXONOMY_OPEN"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
	ErrCodeTeardown = "ERR_502_TEARDOWN"
)

// categoryFromCode derives the category from the numeric range of a code.
func categoryFromCode(code string) Category {
	if len(code) < 5 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		if code == ErrCodeUnknownComponent || code == ErrCodeComponentConfig || code == ErrCodeBadCapability {
			return CategoryComponent
		}
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryEngine
	default:
		return CategoryInternal
	}
}

// severityFromCode derives the severity from a code. Construction-time codes
// are fatal; teardown failures are errors because the sequence continues.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeTeardown:
		return SeverityError
	default:
		return SeverityFatal
	}
}
