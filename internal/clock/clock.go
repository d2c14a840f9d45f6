// Package clock converts between absolute instants and a user's local
// wall-clock, and defines local day boundaries.
package clock

import (
	"log/slog"
	"time"

	"github.com/glotok-bot/glotok/internal/domain"
)

// Clock supplies the current instant. Components take a Clock instead of
// calling time.Now so evaluations can be pinned in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a Clock backed by the system time.
func System() Clock { return systemClock{} }

// Adapter resolves per-user timezones. Unknown zones fall back to the
// configured default and are reported once per lookup; the caller keeps a
// single converted "now" per evaluation so results stay consistent.
type Adapter struct {
	clock     Clock
	defaultTZ *time.Location
	log       *slog.Logger
}

// NewAdapter builds an Adapter. defaultTZ must be a valid IANA zone name.
func NewAdapter(clock Clock, defaultTZ string, log *slog.Logger) (*Adapter, error) {
	if log == nil {
		log = slog.Default()
	}

	loc, err := time.LoadLocation(defaultTZ)
	if err != nil {
		return nil, err
	}

	return &Adapter{clock: clock, defaultTZ: loc, log: log}, nil
}

// Location resolves the profile's timezone, falling back to the default.
func (a *Adapter) Location(p *domain.Profile) *time.Location {
	if p == nil || p.Timezone == "" {
		return a.defaultTZ
	}

	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		a.log.Warn("unknown timezone, using default",
			slog.Int64("user_id", p.TelegramID),
			slog.String("timezone", p.Timezone),
		)
		return a.defaultTZ
	}

	return loc
}

// UserNow returns the current instant in the user's local zone.
func (a *Adapter) UserNow(p *domain.Profile) time.Time {
	return a.clock.Now().In(a.Location(p))
}

// Now returns the current instant in UTC.
func (a *Adapter) Now() time.Time {
	return a.clock.Now().UTC()
}

// DayBounds returns the half-open local day [00:00, 24:00) containing the
// given local instant.
func DayBounds(local time.Time) (start, end time.Time) {
	start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return start, start.AddDate(0, 0, 1)
}
