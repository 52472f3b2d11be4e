// Package presenter turns query results into chat messages.
package presenter

import (
	"strconv"

	"github.com/dailydraw/streak-bot/internal/application/query"
	"github.com/dailydraw/streak-bot/internal/domain/notification"
)

// Score renders one user's score under the given name.
func Score(name string, dto *query.ScoreDTO) notification.Message {
	if dto == nil {
		dto = &query.ScoreDTO{}
	}
	return notification.Score(name, dto.XP, dto.Streak, dto.HasPostedToday)
}

// Scoreboard renders the standings. The title carries the requested size
// even when fewer users have records.
func Scoreboard(dto *query.ScoreboardDTO) notification.Message {
	if dto == nil {
		return notification.Scoreboard(query.DefaultScoreboardSize, nil)
	}

	entries := make([]notification.ScoreboardEntry, 0, len(dto.Standings))
	for _, s := range dto.Standings {
		name := s.DisplayName
		if name == "" {
			name = strconv.FormatInt(s.UserID, 10)
		}
		entries = append(entries, notification.ScoreboardEntry{
			Rank:      s.Rank,
			Name:      name,
			MaxStreak: s.MaxStreak,
			Streak:    s.Streak,
			XP:        s.XP,
		})
	}
	return notification.Scoreboard(dto.Limit, entries)
}
