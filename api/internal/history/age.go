package history

import (
	"fmt"
	"time"
)

type AgeUnit int

const (
	JustNow AgeUnit = iota
	Hours
	Yesterday
	Days
)

// Age - относительный возраст записи; считается при отрисовке, не хранится.
func Age(t, now time.Time) (AgeUnit, int) {
	hours := int(now.Sub(t) / time.Hour)
	if hours < 1 {
		return JustNow, 0
	}
	if hours < 24 {
		return Hours, hours
	}
	days := hours / 24
	if days == 1 {
		return Yesterday, 1
	}
	return Days, days
}

func TimeAgo(t, now time.Time) string {
	unit, n := Age(t, now)
	switch unit {
	case JustNow:
		return "just now"
	case Hours:
		return fmt.Sprintf("%d hours ago", n)
	case Yesterday:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", n)
	}
}
