package presenter

import (
	"errors"

	"github.com/dailydraw/streak-bot/internal/domain/notification"
	"github.com/dailydraw/streak-bot/internal/domain/shared"
)

// Error maps a command failure to the reply the caller sees. Internal
// failures get the generic message; details stay in the logs.
func Error(err error, usage string) notification.Message {
	switch {
	case shared.IsForbidden(err):
		return notification.Denied()
	case shared.IsValidation(err):
		if usage == "" {
			return notification.Failure()
		}
		return notification.Usage(usage)
	case isMissingMember(err):
		return notification.Info("I could not find that member.")
	case shared.IsNotFound(err):
		return notification.Info("That member has no record yet.")
	default:
		return notification.Failure()
	}
}

func isMissingMember(err error) bool {
	return errors.Is(err, shared.ErrMemberNotFound)
}
