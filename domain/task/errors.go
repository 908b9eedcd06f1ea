package task

import "errors"

var (
	ErrNotFound            = errors.New("task not found")
	ErrDuplicate           = errors.New("task already exists")
	ErrTitleRequired       = errors.New("title is required")
	ErrDescriptionRequired = errors.New("description is required")
	ErrZipRequired         = errors.New("zip is required")
	ErrPosterRequired      = errors.New("poster id is required")
	ErrHelperRequired      = errors.New("helper id is required")
	ErrInvalidCategory     = errors.New("invalid category")
)

// IsValidation reports whether err is caused by bad caller input.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrTitleRequired,
		ErrDescriptionRequired,
		ErrZipRequired,
		ErrPosterRequired,
		ErrHelperRequired,
		ErrInvalidCategory,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
