package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgtype"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidTimeOfDay = errors.New("time of day must be HH:MM in 24-hour format")
	ErrInvalidWeekday   = errors.New("weekday must be between 0 (Monday) and 6 (Sunday)")
)

// TimeOfDay is a wall-clock time with minute precision, stored as minutes after midnight.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Minutes returns the number of minutes after midnight.
func (t TimeOfDay) Minutes() int { return int(t) }

func (t TimeOfDay) AddMinutes(n int) TimeOfDay { return t + TimeOfDay(n) }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < 24*60
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidTimeOfDay
	}
	return t.UnmarshalText([]byte(s))
}

// TimeValue lets pgx encode a TimeOfDay into a TIME column.
func (t TimeOfDay) TimeValue() (pgtype.Time, error) {
	return pgtype.Time{Microseconds: int64(t) * int64(time.Minute/time.Microsecond), Valid: true}, nil
}

// ScanTime lets pgx decode a TIME column into a TimeOfDay.
func (t *TimeOfDay) ScanTime(v pgtype.Time) error {
	if !v.Valid {
		return errors.New("cannot scan NULL into TimeOfDay")
	}
	*t = TimeOfDay(v.Microseconds / int64(time.Minute/time.Microsecond))
	return nil
}

// Weekday numbers days from Monday (0) to Sunday (6).
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }

func (d Weekday) String() string {
	if !d.Valid() {
		return "Weekday(" + strconv.Itoa(int(d)) + ")"
	}
	return time.Weekday((int(d) + 1) % 7).String()
}

type Weekdays []Weekday

// ParseWeekdays reads the comma separated form, e.g. "0,1,2,3,4".
func ParseWeekdays(s string) (Weekdays, error) {
	var out Weekdays
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || !Weekday(n).Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidWeekday, part)
		}
		out = append(out, Weekday(n))
	}
	return out, nil
}

func (ds Weekdays) Contains(d Weekday) bool {
	for _, v := range ds {
		if v == d {
			return true
		}
	}
	return false
}

func (ds Weekdays) String() string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

// Int16s converts to the SMALLINT[] column representation.
func (ds Weekdays) Int16s() []int16 {
	out := make([]int16, len(ds))
	for i, d := range ds {
		out[i] = int16(d)
	}
	return out
}

func WeekdaysFromInt16s(vs []int16) Weekdays {
	out := make(Weekdays, len(vs))
	for i, v := range vs {
		out[i] = Weekday(v)
	}
	return out
}

// Date truncates to a calendar date. Dates are carried as midnight UTC so that
// they compare and encode the same regardless of the office timezone.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf returns the calendar date of instant t as observed in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return Date(y, m, d)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %q", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Combine returns the instant at which wall-clock time tod occurs on date in loc.
func Combine(date time.Time, tod TimeOfDay, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, tod.Hour(), tod.Minute(), 0, 0, loc)
}

func AddDays(date time.Time, n int) time.Time {
	return date.AddDate(0, 0, n)
}

// Clock is the single source of "now" for the scheduling core.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// LoadLocation resolves an IANA timezone name, treating "" as UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}
