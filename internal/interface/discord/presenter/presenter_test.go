package presenter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dailydraw/streak-bot/internal/application/query"
	"github.com/dailydraw/streak-bot/internal/domain/notification"
	"github.com/dailydraw/streak-bot/internal/domain/shared"
	"github.com/dailydraw/streak-bot/internal/domain/streak"
)

func TestScoreboard_FallsBackToUserID(t *testing.T) {
	msg := Scoreboard(&query.ScoreboardDTO{
		Limit: 10,
		Standings: []streak.Standing{
			{Rank: 1, UserID: 7, DisplayName: "ana", MaxStreak: 5, Streak: 2, XP: 50},
			{Rank: 2, UserID: 8, MaxStreak: 1, Streak: 0, XP: 10},
		},
	})

	assert.Equal(t, "Top 10 scoreboard", msg.Title)
	assert.Equal(t, []notification.Field{
		{Name: "1. ana", Value: "max streak: 5, streak: 2, total xp: 50"},
		{Name: "2. 8", Value: "max streak: 1, streak: 0, total xp: 10"},
	}, msg.Fields)
}

func TestScore_NilIsZeroes(t *testing.T) {
	msg := Score("ana", nil)
	assert.Equal(t, "score: 0\nstreak: 0\nhas posted: False", msg.Body)
}

func TestError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want notification.Message
	}{
		{"denied", fmt.Errorf("set_xp: %w", shared.ErrAuthorizationDenied), notification.Denied()},
		{"usage", shared.InvalidInput("set_xp", "bad"), notification.Usage("set_xp <member> <amount>")},
		{"member", fmt.Errorf("resolve: %w", shared.ErrMemberNotFound), notification.Info("I could not find that member.")},
		{"record", shared.ErrRecordNotFound, notification.Info("That member has no record yet.")},
		{"store", shared.StoreUnavailable("Update", errors.New("eof")), notification.Failure()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Error(tt.err, "set_xp <member> <amount>"))
		})
	}

	assert.Equal(t, notification.Failure(), Error(shared.InvalidInput("x", "y"), ""))
}
