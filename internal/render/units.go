package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var sizeUnits = []string{"kB", "MB", "GB"}

// ReadableTimedelta renders a countdown as m:ss. Negative values render as 0:00.
func ReadableTimedelta(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// ReadableFileSize renders bytes in SI steps with one decimal, dropping a
// trailing ".0" ("1.5 kB", "12 MB", "800 B").
func ReadableFileSize(size int64) string {
	if size < 0 {
		size = 0
	}
	n := float64(size)
	unit := "B"
	for i := 0; n >= 1000 && i < len(sizeUnits); i++ {
		n /= 1000
		unit = sizeUnits[i]
	}
	s := strconv.FormatFloat(n, 'f', 1, 64)
	s = strings.TrimSuffix(s, ".0")
	return s + " " + unit
}

// FormatTimestamp renders a unix timestamp in local time
func FormatTimestamp(ts int64) string {
	return time.Unix(ts, 0).Local().Format("2006-01-02 15:04:05")
}

// FormatRelativeTime renders a short age ("now", "5m", "3h", "2d", "Jan 2") relative to now
func FormatRelativeTime(date, now time.Time) string {
	diff := now.Sub(date)

	if diff < time.Minute {
		return "now"
	} else if diff < time.Hour {
		return fmt.Sprintf("%dm", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%dh", int(diff.Hours()))
	} else if diff < 7*24*time.Hour {
		return fmt.Sprintf("%dd", int(diff.Hours()/24))
	}
	return date.Format("Jan 2")
}
