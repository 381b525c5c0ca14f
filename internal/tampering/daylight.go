package tampering

import (
	"time"

	"github.com/sj14/astral/pkg/astral"
	"github.com/technosupport/vms-analytics/internal/data"
)

// DayClock decides which reference phase applies to a camera at an instant.
type DayClock interface {
	IsDayTime(cam *data.Camera, now time.Time) bool
}

// LocalDayClock uses the camera's local time of day. With UseSunPosition set
// and site coordinates known, day runs from sunrise to sunset instead.
type LocalDayClock struct {
	dayStart       int
	dayEnd         int
	UseSunPosition bool
}

// NewLocalDayClock builds a clock whose day phase is [dayStart, dayEnd) local time.
func NewLocalDayClock(dayStart, dayEnd string, useSun bool) (*LocalDayClock, error) {
	start, err := ParseClock(dayStart)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(dayEnd)
	if err != nil {
		return nil, err
	}
	return &LocalDayClock{dayStart: start, dayEnd: end, UseSunPosition: useSun}, nil
}

func (c *LocalDayClock) IsDayTime(cam *data.Camera, now time.Time) bool {
	loc, err := LoadLocation(cam.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)

	if c.UseSunPosition && cam.Latitude != nil && cam.Longitude != nil {
		if day, ok := sunDay(*cam.Latitude, *cam.Longitude, local); ok {
			return day
		}
	}

	cur := local.Hour()*3600 + local.Minute()*60 + local.Second()
	return inWindow(cur, c.dayStart, c.dayEnd)
}

// sunDay reports false, false when the sun does not rise or set on that date.
func sunDay(lat, lng float64, local time.Time) (bool, bool) {
	observer := astral.Observer{Latitude: lat, Longitude: lng}
	sunrise, err := astral.Sunrise(observer, local)
	if err != nil {
		return false, false
	}
	sunset, err := astral.Sunset(observer, local)
	if err != nil {
		return false, false
	}
	return !local.Before(sunrise) && local.Before(sunset), true
}

// PhaseFor maps the day flag to a reference phase.
func PhaseFor(isDayTime bool) data.Phase {
	if isDayTime {
		return data.PhaseDay
	}
	return data.PhaseNight
}
