package polling

import "strings"

const (
	UserChannelPrefix = "poll:user:"
	AdminChannel      = "poll:admin:events"
)

// UserChannel is the sorted-set key holding one user's events.
func UserChannel(userID string) string {
	return UserChannelPrefix + strings.TrimSpace(userID)
}
