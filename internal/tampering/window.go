package tampering

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/vms-analytics/internal/data"
)

// DetectionQuerier returns the scheduled checks recorded for a view since an instant.
type DetectionQuerier interface {
	ListTamperingDetections(ctx context.Context, viewID uuid.UUID, since time.Time) ([]data.TamperingDetection, error)
}

// ParseClock parses a local time of day ("HH:MM" or "HH:MM:SS") into seconds after midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
	limits := []int{24, 60, 60}
	secs := 0
	mult := []int{3600, 60, 1}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v >= limits[i] {
			return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
		}
		secs += v * mult[i]
	}
	return secs, nil
}

// ValidateWindows checks that every boundary parses.
func ValidateWindows(w data.WindowConfig) error {
	for _, s := range []string{w.FirstCheckFrom, w.FirstCheckTo, w.SecondCheckFrom, w.SecondCheckTo} {
		if _, err := ParseClock(s); err != nil {
			return err
		}
	}
	return nil
}

// LoadLocation resolves an IANA timezone name.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidTimezone)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return loc, nil
}

// inWindow reports whether cur lies in [from, to). A window with from > to wraps midnight.
func inWindow(cur, from, to int) bool {
	if from <= to {
		return cur >= from && cur < to
	}
	return cur >= from || cur < to
}

// WindowStart returns the instant the current check window opened. now is
// placed in the first window when its local time falls in
// [firstCheckFrom, firstCheckTo), otherwise in the second. When the window's
// start is later in the day than now, the window opened on the previous
// local calendar day.
func WindowStart(w data.WindowConfig, loc *time.Location, now time.Time) (time.Time, error) {
	firstFrom, err := ParseClock(w.FirstCheckFrom)
	if err != nil {
		return time.Time{}, err
	}
	firstTo, err := ParseClock(w.FirstCheckTo)
	if err != nil {
		return time.Time{}, err
	}
	secondFrom, err := ParseClock(w.SecondCheckFrom)
	if err != nil {
		return time.Time{}, err
	}

	local := now.In(loc)
	cur := local.Hour()*3600 + local.Minute()*60 + local.Second()

	from := secondFrom
	if inWindow(cur, firstFrom, firstTo) {
		from = firstFrom
	}

	start := time.Date(local.Year(), local.Month(), local.Day(), from/3600, (from%3600)/60, from%60, 0, loc)
	if from > cur {
		start = start.AddDate(0, 0, -1)
	}
	return start, nil
}

// WindowChecker prevents a second scheduled check inside the same daily window.
type WindowChecker struct {
	detections DetectionQuerier
}

func NewWindowChecker(q DetectionQuerier) *WindowChecker {
	return &WindowChecker{detections: q}
}

// AlreadyChecked reports whether a check was recorded for viewID since the
// current window opened. Query errors are returned to the caller unchanged.
func (c *WindowChecker) AlreadyChecked(ctx context.Context, viewID uuid.UUID, w data.WindowConfig, timezone string, now time.Time) (bool, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return false, err
	}
	since, err := WindowStart(w, loc, now)
	if err != nil {
		return false, err
	}
	records, err := c.detections.ListTamperingDetections(ctx, viewID, since)
	if err != nil {
		return false, fmt.Errorf("list tampering detections: %w", err)
	}
	return len(records) > 0, nil
}
