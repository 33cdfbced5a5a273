package cli

import (
	"fmt"
	"time"
)

// FormatDuration formats d for humans: 850ms, 12.5s, 3m4.0s.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := d / time.Minute
	return fmt.Sprintf("%dm%.1fs", m, (d - m*time.Minute).Seconds())
}

// FormatAge describes how long before now t was: "just now", "5m ago",
// "3h ago", "2d ago". Older times and times in the future print as dates.
func FormatAge(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < 0:
		return t.Local().Format(time.DateTime)
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", d/time.Minute)
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", d/time.Hour)
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", d/(24*time.Hour))
	}
	return t.Local().Format(time.DateOnly)
}
