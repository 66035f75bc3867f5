package leads

import "github.com/wolfman30/leadradar/internal/apperror"

var (
	// ErrFormArchived is returned when a submission targets an archived form.
	ErrFormArchived = apperror.Conflict("FORM_ARCHIVED", "This form no longer accepts leads")

	// ErrUnknownFieldKey is returned when submitted keys are not defined on the form.
	ErrUnknownFieldKey = apperror.Validation("UNKNOWN_FIELD_KEY", "One or more fieldKeys are not defined for this form")

	// ErrMissingRequiredField is returned when required fields are absent or blank.
	ErrMissingRequiredField = apperror.Validation("MISSING_REQUIRED_FIELD", "One or more required fields are missing or empty")

	// ErrInvalidFormID is returned when formId is absent or not a positive integer.
	ErrInvalidFormID = apperror.Validation("INVALID_FORM_ID", "formId is required and must be a positive integer")

	// ErrInvalidReference is returned when eventId or capturedByUserId does not exist.
	ErrInvalidReference = apperror.Validation("INVALID_REFERENCE", "Referenced event or user does not exist")

	// ErrInvalidValues is returned when values is neither an object nor an array.
	ErrInvalidValues = apperror.Validation(apperror.CodeValidation, "values must be an object keyed by field key or an array of {fieldKey, value}")

	// ErrBlankFieldKey is returned when a submitted value has an empty key.
	ErrBlankFieldKey = apperror.Validation(apperror.CodeValidation, "Each value must have a non-empty fieldKey")

	// ErrDuplicateFieldKey is returned when a key is submitted twice.
	ErrDuplicateFieldKey = apperror.Validation(apperror.CodeValidation, "Each fieldKey may be submitted only once")

	// ErrInvalidPagination is returned for malformed limit or offset values.
	ErrInvalidPagination = apperror.Validation(apperror.CodeValidation, "limit and offset must be non-negative integers")
)
