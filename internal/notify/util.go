package notify

import (
	"errors"
	"sort"
)

var errNoBackend = errors.New("no notification backend for recipient")

func sortNewestFirst(notifications []Notification) {
	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].Timestamp.After(notifications[j].Timestamp)
	})
}
