package main

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/technosupport/vms-analytics/internal/config"
	"github.com/technosupport/vms-analytics/internal/data"
	"github.com/technosupport/vms-analytics/internal/tampering"
)

// liveDayClock reads the day hours from the current config snapshot so a
// reload applies to the next request.
type liveDayClock struct {
	watcher *config.Watcher
	log     zerolog.Logger
}

func (c *liveDayClock) IsDayTime(cam *data.Camera, now time.Time) bool {
	t := c.watcher.Current().Tampering
	clock, err := tampering.NewLocalDayClock(t.DayStart, t.DayEnd, t.UseSunPosition)
	if err != nil {
		// Validate rejects these on load, so only a zero config gets here.
		c.log.Error().Err(err).Msg("invalid day hours, using 06:00-18:00")
		clock, _ = tampering.NewLocalDayClock("06:00", "18:00", false)
	}
	return clock.IsDayTime(cam, now)
}
