package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates a referenced user, post, comment, report or edge is absent.
	ErrNotFound = errors.New("resource not found")
	// ErrForbidden indicates the caller lacks the relationship the operation requires.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrConflict indicates the resource already exists.
	ErrConflict = errors.New("resource already exists")
	// ErrInvalidArgument indicates malformed input.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrAlreadyFollowing    = fmt.Errorf("%w: already following user", ErrConflict)
	ErrNotFollowing        = fmt.Errorf("%w: not following user", ErrNotFound)
	ErrAlreadyWatching     = fmt.Errorf("%w: already following post", ErrConflict)
	ErrNotWatching         = fmt.Errorf("%w: not following post", ErrNotFound)
	ErrInvalidReportAction = fmt.Errorf("%w: action must be RESOLVED or DISMISSED", ErrInvalidArgument)
)

// notFound maps gorm.ErrRecordNotFound to ErrNotFound, labelled with what was missing.
func notFound(what string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return err
}

func invalidArgument(message string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, message)
}

func notFoundByName(username string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// duplicateAs reports a unique-index violation from a racing insert as conflict.
func duplicateAs(err, conflict error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return conflict
	}
	return err
}
