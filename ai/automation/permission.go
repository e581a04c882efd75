package automation

import (
	"context"
	"fmt"
	"strings"

	"github.com/doitpm/assist/store"
)

// UserFinder is the slice of the store the gate needs.
type UserFinder interface {
	GetUser(ctx context.Context, find *store.FindUser) (*store.User, error)
}

// adminOnlyActions require role admin or super-admin.
var adminOnlyActions = map[Action]bool{
	ActionCreateSprint:   true,
	ActionStartSprint:    true,
	ActionCompleteSprint: true,
	ActionCreateProject:  true,
}

// memberAllowedActions are permitted for any authenticated member. Anything
// outside this set and the admin set is denied by default.
var memberAllowedActions = map[Action]bool{
	ActionCreateTask:           true,
	ActionAssignTask:           true,
	ActionUpdateTask:           true,
	ActionAddTaskToSprint:      true,
	ActionRemoveTaskFromSprint: true,
	ActionListTasks:            true,
	ActionListSprints:          true,
	ActionListProjects:         true,
	ActionAddMember:            true,
	ActionRemoveMember:         true,
	ActionListMembers:          true,
}

// Gate decides whether a user may execute an action. The check is strictly
// role-based; project membership is enforced downstream by resolver scoping
// and the mutation layer.
type Gate struct {
	users UserFinder
}

func NewGate(users UserFinder) *Gate {
	return &Gate{users: users}
}

// Check returns (allowed, reason). The reason is empty when allowed.
func (g *Gate) Check(ctx context.Context, userID int32, action Action) (bool, string) {
	user, err := g.users.GetUser(ctx, &store.FindUser{ID: &userID})
	if err != nil {
		return false, fmt.Sprintf("Permission check failed: %v", err)
	}
	if user == nil {
		return false, "User not found"
	}

	if adminOnlyActions[action] {
		if !user.Role.IsAdmin() {
			metricPermissionDenied.WithLabelValues(action.String()).Inc()
			return false, fmt.Sprintf("Only Admin users can %s", strings.ReplaceAll(action.String(), "_", " "))
		}
		return true, ""
	}

	if memberAllowedActions[action] {
		return true, ""
	}

	metricPermissionDenied.WithLabelValues(action.String()).Inc()
	return false, fmt.Sprintf("User role '%s' does not have permission for %s", user.Role, action)
}
