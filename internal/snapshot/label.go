package snapshot

import (
	"strconv"
	"time"
)

// NeverLabel is returned by Label when no snapshot has been recorded.
const NeverLabel = "never"

// Label renders the age of a snapshot taken at updated, as seen at now.
// A zero updated yields NeverLabel.
func Label(updated, now time.Time) string {
	if updated.IsZero() {
		return NeverLabel
	}

	elapsed := now.Sub(updated)
	minutes := int(elapsed / time.Minute)
	hours := int(elapsed / time.Hour)
	days := int(elapsed / (24 * time.Hour))

	switch {
	case minutes < 1:
		return "just now"
	case minutes < 60:
		return strconv.Itoa(minutes) + "m ago"
	case hours < 24:
		return strconv.Itoa(hours) + "h ago"
	case days < 7:
		return strconv.Itoa(days) + "d ago"
	}
	return updated.Local().Format("1/2/2006")
}
