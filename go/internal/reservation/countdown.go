package reservation

import (
	"fmt"
	"time"
)

// Remaining returns max(0, deadline - now)
func Remaining(deadline, now time.Time) time.Duration {
	d := deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RemainingSeconds rounds up so a countdown shows 00:00 only when it is over
func RemainingSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// FormatRemaining renders d as MM:SS
func FormatRemaining(d time.Duration) string {
	secs := RemainingSeconds(d)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
