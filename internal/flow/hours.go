package flow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fidcomex/sacbox/config"
	"github.com/pkg/errors"
)

// Schedule classifies an instant against the support desk's calendar.
type Schedule int

const (
	ScheduleOpen Schedule = iota
	ScheduleClosed
	ScheduleHoliday
)

type holiday struct {
	from    time.Time // inclusive, midnight local
	until   time.Time // exclusive, midnight after To
	message string
}

// BusinessHours evaluates the weekday 08:30–17:30 window in a fixed local
// time zone. Weekends are always closed; configured holiday windows take
// precedence over both and carry their own message.
type BusinessHours struct {
	loc       *time.Location
	openMins  int
	closeMins int
	holidays  []holiday

	now func() time.Time
}

func NewBusinessHours(timezone, open, close string, windows []config.HolidayWindow) (*BusinessHours, error) {
	if timezone == "" {
		timezone = "America/Sao_Paulo"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errors.Wrap(err, "load timezone")
	}

	if open == "" {
		open = "08:30"
	}
	if close == "" {
		close = "17:30"
	}
	openMins, err := parseClock(open)
	if err != nil {
		return nil, err
	}
	closeMins, err := parseClock(close)
	if err != nil {
		return nil, err
	}

	b := &BusinessHours{
		loc:       loc,
		openMins:  openMins,
		closeMins: closeMins,
		now:       time.Now,
	}

	for _, w := range windows {
		from, err := time.ParseInLocation("2006-01-02", w.From, loc)
		if err != nil {
			return nil, errors.Wrapf(err, "holiday from %q", w.From)
		}
		to, err := time.ParseInLocation("2006-01-02", w.To, loc)
		if err != nil {
			return nil, errors.Wrapf(err, "holiday to %q", w.To)
		}
		b.holidays = append(b.holidays, holiday{
			from:    from,
			until:   to.AddDate(0, 0, 1),
			message: w.Message,
		})
	}

	return b, nil
}

// WithNow replaces the clock, for tests.
func (b *BusinessHours) WithNow(now func() time.Time) *BusinessHours {
	b.now = now
	return b
}

// Status evaluates the current instant.
func (b *BusinessHours) Status() (Schedule, string) {
	return b.At(b.now())
}

// At classifies t. The second return is the holiday message when the
// schedule is ScheduleHoliday, empty otherwise.
func (b *BusinessHours) At(t time.Time) (Schedule, string) {
	t = t.In(b.loc)

	for _, h := range b.holidays {
		if !t.Before(h.from) && t.Before(h.until) {
			return ScheduleHoliday, h.message
		}
	}

	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return ScheduleClosed, ""
	}

	mins := t.Hour()*60 + t.Minute()
	if mins < b.openMins || mins >= b.closeMins {
		return ScheduleClosed, ""
	}
	return ScheduleOpen, ""
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	return h*60 + m, nil
}
