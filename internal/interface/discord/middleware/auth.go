package middleware

import (
	"context"

	"github.com/dailydraw/streak-bot/internal/domain/access"
	"github.com/dailydraw/streak-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CAPABILITIES
// Turns the caller's roles and guild permissions into an access.Set.
// ══════════════════════════════════════════════════════════════════════════════

// PermissionChecker reports guild-level administrator rights.
type PermissionChecker interface {
	IsAdministrator(ctx context.Context, userID, channelID string) (bool, error)
}

// Caller identifies who sent a command.
type Caller struct {
	UserID    string
	ChannelID string
	RoleIDs   []string
}

// CapabilityResolver computes capabilities for callers.
type CapabilityResolver struct {
	policy *access.Policy
	perms  PermissionChecker
}

// NewCapabilityResolver creates a resolver. perms may be nil, in which case
// only admin roles grant capabilities.
func NewCapabilityResolver(policy *access.Policy, perms PermissionChecker) *CapabilityResolver {
	return &CapabilityResolver{policy: policy, perms: perms}
}

// Resolve returns the caller's capabilities. Role membership is checked
// first; the permission lookup only happens when roles grant nothing. A
// failed lookup yields no capabilities.
func (r *CapabilityResolver) Resolve(ctx context.Context, c Caller) access.Set {
	if caps := r.policy.Resolve(c.RoleIDs, false); len(caps) > 0 {
		return caps
	}
	if r.perms == nil {
		return access.NewSet()
	}

	admin, err := r.perms.IsAdministrator(ctx, c.UserID, c.ChannelID)
	if err != nil {
		logger.FromContext(ctx).Warn("permission lookup failed",
			logger.String("user", c.UserID),
			logger.Err(err),
		)
		return access.NewSet()
	}
	return r.policy.Resolve(c.RoleIDs, admin)
}
