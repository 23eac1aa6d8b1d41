package broadcast

import (
	"strings"

	"msgcore/internal/domain"
)

// Path conventions. Direct conversations are keyed by the sorted participant
// pair so both sides derive the same key; groups by group id; unread counters
// by recipient.

func ConversationPath(a, b domain.UserID) string {
	first, second := a.String(), b.String()
	if second < first {
		first, second = second, first
	}
	return "conversations/" + first + "-" + second
}

func MessagePath(a, b domain.UserID, msgID domain.MessageID) string {
	return ConversationPath(a, b) + "/" + msgID.String()
}

func GroupPath(id domain.GroupID) string {
	return "groups/" + id.String()
}

func GroupMessagePath(id domain.GroupID, msgID domain.MessageID) string {
	return GroupPath(id) + "/" + msgID.String()
}

func UnreadRoot(recipient domain.UserID) string {
	return "unread/" + recipient.String()
}

func UnreadDirectPath(recipient, partner domain.UserID) string {
	return UnreadRoot(recipient) + "/direct/" + partner.String()
}

func UnreadGroupPath(recipient domain.UserID, group domain.GroupID) string {
	return UnreadRoot(recipient) + "/groups/" + group.String()
}

func AdminAlertPath(id string) string {
	return "admin/alerts/" + id
}

// Split breaks a path into its segments, dropping empties from leading or
// doubled slashes.
func Split(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
