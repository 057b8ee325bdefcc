package session

import "fmt"

// FormatMillis renders a millisecond total as zero-padded "MM:SS".
// Floor division throughout; partial seconds never round up.
func FormatMillis(millis int64) string {
	if millis < 0 {
		millis = 0
	}
	totalSec := millis / 1000
	return fmt.Sprintf("%02d:%02d", totalSec/60, totalSec%60)
}
