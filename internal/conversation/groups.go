package conversation

import "time"

// Group labels used by the sidebar, in display order.
const (
	GroupToday     = "Today"
	GroupYesterday = "Yesterday"
	GroupWeek      = "Previous 7 Days"
	GroupOlder     = "Older"
)

// GroupOrder is the fixed bucket ordering for rendering.
var GroupOrder = []string{GroupToday, GroupYesterday, GroupWeek, GroupOlder}

// GroupByAge buckets conversations by the age of their creation
// timestamp relative to now, using local calendar days. Ordering
// inside each bucket preserves the input order, which the server
// already returns newest first.
func GroupByAge(convs []Conversation, now time.Time) map[string][]Conversation {
	groups := make(map[string][]Conversation)
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfYesterday := startOfToday.AddDate(0, 0, -1)
	weekAgo := startOfToday.AddDate(0, 0, -7)

	for _, c := range convs {
		t := c.CreatedAt.In(now.Location())
		switch {
		case !t.Before(startOfToday):
			groups[GroupToday] = append(groups[GroupToday], c)
		case !t.Before(startOfYesterday):
			groups[GroupYesterday] = append(groups[GroupYesterday], c)
		case !t.Before(weekAgo):
			groups[GroupWeek] = append(groups[GroupWeek], c)
		default:
			groups[GroupOlder] = append(groups[GroupOlder], c)
		}
	}
	return groups
}
