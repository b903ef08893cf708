package storage

import (
	"database/sql"
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to storage errors.
const (
	TextCodeNotFound    = "NOT_FOUND"
	TextCodeInvalid     = "INVALID_INPUT"
	TextCodeDatabase    = "DATABASE_ERROR"
	TextCodeSideEffects = "LIFECYCLE_SIDE_EFFECTS_FAILED"
	TextCodeNotDeleted  = "NOT_DELETED"
)

func notFound(entity string) error {
	return goerrors.New(entity+" not found", goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeNotFound)
}

func invalid(msg string) error {
	return goerrors.New(msg, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeInvalid)
}

func notDeleted(entity string) error {
	return goerrors.New(entity+" is not deleted", goerrors.CategoryBadInput).
		WithCode(http.StatusConflict).
		WithTextCode(TextCodeNotDeleted)
}

func dbError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var gerr *goerrors.Error
	if errors.As(err, &gerr) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeDatabase)
}

// sideEffects wraps a lifecycle failure. The write it followed is committed.
func sideEffects(err error, action string) error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, "shop "+action+" committed but side effects failed").
		WithCode(http.StatusBadGateway).
		WithTextCode(TextCodeSideEffects)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
