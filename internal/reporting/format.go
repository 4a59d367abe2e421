package reporting

import (
	"fmt"
	"math"
	"time"
)

// TimeAgo renders the time elapsed between then and now for the activity feed.
func TimeAgo(now, then time.Time) string {
	secs := int64(now.Sub(then) / time.Second)
	switch {
	case secs < 60:
		return "Just now"
	case secs < 3600:
		return fmt.Sprintf("%d minutes ago", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%d hours ago", secs/3600)
	case secs < 604800:
		return fmt.Sprintf("%d days ago", secs/86400)
	}
	return fmt.Sprintf("%d weeks ago", secs/604800)
}

// Growth is the percentage change from previous to current rounded to one decimal.
// It is 0 when there is no previous revenue to compare with.
func Growth(current, previous float64) float64 {
	if previous <= 0 {
		return 0
	}
	return math.Round((current-previous)/previous*1000) / 10
}
