package timer

import (
	"fmt"
	"time"
)

// FormatDuration renders d as HH:MM:SS. Non-positive durations render as 00:00:00.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "00:00:00"
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

// FormatDurationFull renders d as "1h 2m 3s", omitting the hours when zero.
func FormatDurationFull(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	h, m, s := secs/3600, secs/60%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	return fmt.Sprintf("%dm %ds", m, s)
}

// FormatRest renders a rest countdown as MM:SS.
func FormatRest(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
