package properties

import "errors"

var (
	ErrNotFound             = errors.New("property not found")
	ErrForbidden            = errors.New("not the owner of this property")
	ErrVerificationRequired = errors.New("verification required")
	ErrDocumentsRequired    = errors.New("documents required")
	ErrInvalidState         = errors.New("action not allowed in current verification state")
	ErrValidation           = errors.New("validation failed")
)
