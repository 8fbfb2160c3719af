package services

import (
	"errors"

	apperrors "budgetly/internal/errors"
	"budgetly/internal/models"
	"budgetly/internal/repository"
)

// validationError turns a domain rule violation into a VALIDATION_ERROR
// naming the offending field.
func validationError(err error) error {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return apperrors.WithDetails(apperrors.ErrValidation, ve.Message, map[string]any{"field": ve.Field})
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// storeError maps repository errors that escape a write.
func storeError(err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrStale):
		return apperrors.Wrap(apperrors.ErrConcurrentUpdate, err)
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}
