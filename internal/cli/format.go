package cli

import (
	"fmt"
	"time"
)

// FormatElapsed renders how long a provider call took: milliseconds under
// a second, tenths of a second under a minute, then minutes and seconds.
func FormatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		d = d.Round(time.Second)
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

// FormatTimestamp renders a unix-millisecond timestamp in local time.
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}
