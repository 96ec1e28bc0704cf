package marketclock

import (
	"fmt"
	"time"

	"github.com/Anassarwar14/tradesim/internal/config"
)

const _timeLayout = "15:04"

var _defaultWeekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}

type session struct {
	openMinute  int
	closeMinute int
	location    *time.Location
	weekdays    map[time.Weekday]bool
}

// Clock answers whether a venue is open for a given instrument class at a
// given instant. It is pure and deterministic once constructed.
type Clock struct {
	sessions map[string]session
}

func New(cfg config.MarketConfig) (*Clock, error) {
	sessions := make(map[string]session, len(cfg.Sessions))
	for class, sc := range cfg.Sessions {
		s, err := parseSession(sc)
		if err != nil {
			return nil, fmt.Errorf("%w: can't parse session for %s", err, class)
		}
		sessions[class] = s
	}

	return &Clock{sessions: sessions}, nil
}

// IsOpen reports whether the venue trading instrumentClass is open at t.
// Unknown instrument classes are treated as closed.
func (c *Clock) IsOpen(instrumentClass string, t time.Time) bool {
	s, ok := c.sessions[instrumentClass]
	if !ok {
		return false
	}

	local := t.In(s.location)
	if !s.weekdays[local.Weekday()] {
		return false
	}

	minute := local.Hour()*60 + local.Minute()
	return minute >= s.openMinute && minute < s.closeMinute
}

func parseSession(sc config.SessionConfig) (session, error) {
	open, err := time.Parse(_timeLayout, sc.Open)
	if err != nil {
		return session{}, fmt.Errorf("%w: bad open time %q", err, sc.Open)
	}
	close, err := time.Parse(_timeLayout, sc.Close)
	if err != nil {
		return session{}, fmt.Errorf("%w: bad close time %q", err, sc.Close)
	}

	s := session{
		openMinute:  open.Hour()*60 + open.Minute(),
		closeMinute: close.Hour()*60 + close.Minute(),
		location:    time.UTC,
		weekdays:    make(map[time.Weekday]bool),
	}
	if s.openMinute >= s.closeMinute {
		return session{}, fmt.Errorf("open %q is not before close %q", sc.Open, sc.Close)
	}

	if sc.Timezone != "" {
		loc, err := time.LoadLocation(sc.Timezone)
		if err != nil {
			return session{}, fmt.Errorf("%w: bad timezone %q", err, sc.Timezone)
		}
		s.location = loc
	}

	if len(sc.Weekdays) == 0 {
		for _, wd := range _defaultWeekdays {
			s.weekdays[wd] = true
		}
		return s, nil
	}
	for _, name := range sc.Weekdays {
		wd, err := parseWeekday(name)
		if err != nil {
			return session{}, err
		}
		s.weekdays[wd] = true
	}

	return s, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if wd.String() == name {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}
