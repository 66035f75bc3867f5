package forms

import "github.com/wolfman30/leadradar/internal/apperror"

var (
	// ErrFormNotFound is returned when a form id does not exist.
	ErrFormNotFound = apperror.NotFound("FORM_NOT_FOUND", "Form not found")

	// ErrFieldNotFound is returned when a field does not exist on the form.
	ErrFieldNotFound = apperror.NotFound("FIELD_NOT_FOUND", "Field not found")

	// ErrNameRequired is returned when a form name is empty or whitespace.
	ErrNameRequired = apperror.Validation(apperror.CodeValidation, "Form name is required")

	// ErrInvalidStatus is returned for statuses outside the enum.
	ErrInvalidStatus = apperror.Validation("INVALID_STATUS", "Status must be one of DRAFT, ACTIVE, ARCHIVED")

	// ErrInvalidTransition is returned when leaving the terminal ARCHIVED status.
	ErrInvalidTransition = apperror.Validation("INVALID_STATUS_TRANSITION", "Archived forms cannot be reactivated")

	// ErrNoUpdateFields is returned for an empty partial update.
	ErrNoUpdateFields = apperror.Validation("NO_UPDATE_FIELDS", "No fields to update were supplied")

	// ErrFieldValidation is returned for malformed field attributes.
	ErrFieldValidation = apperror.Validation(apperror.CodeValidation, "Invalid field")

	// ErrInvalidFieldType is returned for unsupported field types.
	ErrInvalidFieldType = apperror.Validation("INVALID_FIELD_TYPE", "Field type is not supported")

	// ErrDuplicateFieldKey is returned when a key is already used on the form.
	ErrDuplicateFieldKey = apperror.Conflict("FIELD_KEY_DUPLICATE", "The field key is already used in this form")

	// ErrInvalidFieldOrder is returned when a reorder list does not match the
	// form's field set.
	ErrInvalidFieldOrder = apperror.Validation("INVALID_FIELD_ORDER", "fieldOrder must list every field of the form exactly once")
)
