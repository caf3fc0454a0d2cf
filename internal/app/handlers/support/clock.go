package support

import (
	"time"

	"github.com/google/uuid"
)

// Clock is injected into handlers so tests can pin "today".
type Clock func() time.Time

func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// IDs generates aggregate identifiers.
type IDs func() string

func (g IDs) New() string {
	if g == nil {
		return uuid.NewString()
	}
	return g()
}
