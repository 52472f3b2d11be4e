package notification

import (
	"fmt"
	"strconv"
)

// Welcome greets a user after their first qualifying post.
func Welcome() Message {
	return Message{Kind: KindWelcome, Body: "We spy a new practitioner of the mystic arts!"}
}

// XPAwarded confirms a streak extension.
func XPAwarded(amount int, author, guild string, total int) Message {
	return Message{
		Kind: KindXPAwarded,
		Body: fmt.Sprintf("Added %d to %s in server %s. (Current exp: %d)", amount, author, guild, total),
	}
}

// ResetStarted is broadcast before the daily reset runs.
func ResetStarted() Message {
	return Message{Kind: KindResetStart, Body: "Pruning the weaklings.."}
}

// ResetFinished is broadcast after the daily reset committed.
func ResetFinished() Message {
	return Message{Kind: KindResetEnd, Body: "A new sun rises on the battlefield.."}
}

// Ready is announced when the bot connects.
func Ready() Message {
	return Message{Kind: KindReady, Body: "Ready to break some wrists"}
}

// Denied answers a command the caller lacks the capability for.
func Denied() Message {
	return Message{Kind: KindDenied, Body: "You are not allowed to do that."}
}

// Usage answers a command with malformed arguments.
func Usage(text string) Message {
	return Message{Kind: KindUsage, Body: "Usage: " + text}
}

// Info is a short acknowledgement.
func Info(text string) Message {
	return Message{Kind: KindInfo, Body: text}
}

// Failure is the generic reply when a command could not be completed.
func Failure() Message {
	return Message{Kind: KindError, Body: "Something went wrong, please try again later."}
}

// Score renders one user's standing.
func Score(name string, xp, streak int, hasPosted bool) Message {
	return Message{
		Kind:  KindScore,
		Title: name + "'s score",
		Body: fmt.Sprintf("score: %d\nstreak: %d\nhas posted: %s",
			xp, streak, capitalizedBool(hasPosted)),
	}
}

// ScoreboardEntry is one line of the scoreboard.
type ScoreboardEntry struct {
	Rank      int
	Name      string
	MaxStreak int
	Streak    int
	XP        int
}

// Scoreboard renders the top standings of a guild.
func Scoreboard(size int, entries []ScoreboardEntry) Message {
	msg := Message{
		Kind:   KindScoreboard,
		Title:  "Top " + strconv.Itoa(size) + " scoreboard",
		Fields: make([]Field, 0, len(entries)),
	}
	for _, e := range entries {
		msg.Fields = append(msg.Fields, Field{
			Name:  fmt.Sprintf("%d. %s", e.Rank, e.Name),
			Value: fmt.Sprintf("max streak: %d, streak: %d, total xp: %d", e.MaxStreak, e.Streak, e.XP),
		})
	}
	return msg
}

// capitalizedBool matches the score replies the bot has always sent.
func capitalizedBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
