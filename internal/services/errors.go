package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: the raffle or object does not exist or lacks the expected shape.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState: the raffle's derived status forbids the operation.
	ErrInvalidState = errors.New("invalid raffle state")
	// ErrNetwork: the ledger query failed for reasons unrelated to raffle state.
	ErrNetwork = errors.New("network error")
	// ErrInvalidArgument: the caller supplied unusable input.
	ErrInvalidArgument = errors.New("invalid argument")
)

func isDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidState) || errors.Is(err, ErrInvalidArgument)
}

// networkError wraps err as ErrNetwork unless it already is a domain or
// network error.
func networkError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) || errors.Is(err, ErrNetwork) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

func invalidState(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidState)
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidArgument)
}
