package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a calendar date (UTC midnight). It marshals to an ISO-8601
// YYYY-MM-DD string so no native time representation leaks to API callers.
type Day struct {
	t time.Time
}

// NewDay truncates t to UTC midnight.
func NewDay(t time.Time) Day {
	u := t.UTC()
	return Day{t: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// Today returns the current UTC date.
func Today() Day {
	return NewDay(time.Now())
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return NewDay(t), nil
}

func (d Day) Time() time.Time   { return d.t }
func (d Day) String() string    { return d.t.Format(dayLayout) }
func (d Day) IsZero() bool      { return d.t.IsZero() }
func (d Day) Before(o Day) bool { return d.t.Before(o.t) }
func (d Day) After(o Day) bool  { return d.t.After(o.t) }
func (d Day) Equal(o Day) bool  { return d.t.Equal(o.t) }

// AddDays returns the date n days after d (negative n goes back).
func (d Day) AddDays(n int) Day {
	return Day{t: d.t.AddDate(0, 0, n)}
}

// DaysUntil returns the number of calendar days from d to o.
func (d Day) DaysUntil(o Day) int {
	return int(o.t.Sub(d.t).Hours() / 24)
}

func (d Day) Weekday() time.Weekday { return d.t.Weekday() }
func (d Day) Month() time.Month     { return d.t.Month() }

func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Day) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*d = Day{}
		return nil
	}
	parsed, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer so a Day binds as a date parameter.
func (d Day) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner; the store keeps dates as text or native dates
// depending on the driver.
func (d *Day) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDay(v)
		return nil
	case string:
		parsed, err := ParseDay(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		parsed, err := ParseDay(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Day", src)
	}
}
