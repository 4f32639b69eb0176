package conversation

import (
	"time"

	"github.com/iris-assistant/backend/internal/storage/models"
)

var groupLabels = [...]string{"Hoje", "Ontem", "Últimos 7 dias", "Últimos 30 dias", "Mais antigas"}

// GroupByDate buckets conversations by updatedAt relative to the calendar
// day of now in loc. Empty groups are dropped and input order is kept.
func GroupByDate(convs []models.Conversation, now time.Time, loc *time.Location) []models.ConversationGroup {
	if loc == nil {
		loc = time.UTC
	}

	today := startOfDay(now, loc)
	yesterday := today.AddDate(0, 0, -1)
	lastWeek := today.AddDate(0, 0, -7)
	lastMonth := today.AddDate(0, 0, -30)

	buckets := make([][]models.Conversation, len(groupLabels))
	for _, c := range convs {
		day := startOfDay(c.UpdatedAt, loc)

		var i int
		switch {
		case day.Equal(today):
			i = 0
		case day.Equal(yesterday):
			i = 1
		case !c.UpdatedAt.Before(lastWeek):
			i = 2
		case !c.UpdatedAt.Before(lastMonth):
			i = 3
		default:
			i = 4
		}
		buckets[i] = append(buckets[i], c)
	}

	groups := make([]models.ConversationGroup, 0, len(groupLabels))
	for i, label := range groupLabels {
		if len(buckets[i]) == 0 {
			continue
		}
		groups = append(groups, models.ConversationGroup{Label: label, Conversations: buckets[i]})
	}
	return groups
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
