package scoreboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("scoreboard is not visible yet")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// ParseID parses a caller-supplied numeric identifier. It is meant to run
// before any store query so malformed ids never reach the database.
func ParseID(raw string) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty id", ErrInvalidInput)
	}
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q is not a valid id", ErrInvalidInput, raw)
	}
	return uint(id), nil
}
