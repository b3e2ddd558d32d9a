package service

import (
	"github.com/wholesail/wholesail/internal/domain"
)

// invalid marks a request validation failure so handlers answer 400.
func invalid(err error) error {
	if err == nil || domain.IsValidation(err) {
		return err
	}
	return domain.NewValidationError(err.Error())
}

// isDomainError reports errors that are returned to callers unwrapped.
func isDomainError(err error) bool {
	return domain.IsNotFound(err) || domain.IsConflict(err) || domain.IsValidation(err)
}
