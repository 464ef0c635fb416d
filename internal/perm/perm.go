// Package perm is the single source of truth for role and assignment based
// access rules. All predicates are pure: no I/O, no side effects. Every
// mutating engine operation calls the relevant predicate before touching
// local state or issuing a remote request.
package perm

import (
	"github.com/agalitsyn/taskboard/internal/model"
)

// CanEdit reports whether actor may change a task's title or description.
//
// Rules:
//   - Admins can edit anything.
//   - The creator can edit their own task.
func CanEdit(actor *model.User, task *model.Task) bool {
	if actor == nil || task == nil {
		return false
	}
	if actor.Role == model.UserRoleAdmin {
		return true
	}
	return actor.ID == task.CreatedBy
}

// CanComment reports whether actor may comment on a task. The assignment set
// is authoritative: being the legacy primary assignee alone is not enough.
func CanComment(actor *model.User, task *model.Task) bool {
	if actor == nil || task == nil {
		return false
	}
	switch actor.Role {
	case model.UserRoleAdmin, model.UserRoleSalesAdmin:
		return true
	}
	return task.HasAssignee(actor.ID)
}

// CanManageAssignments reports whether actor may add or remove assignees.
func CanManageAssignments(actor *model.User, task *model.Task) bool {
	if actor == nil || task == nil {
		return false
	}
	if actor.Role == model.UserRoleAdmin {
		return true
	}
	return task.HasAssignee(actor.ID)
}

// CanDeleteAttachment reports whether actor may remove an attachment:
// admins and the uploader only.
func CanDeleteAttachment(actor *model.User, attachment *model.Attachment) bool {
	if actor == nil || attachment == nil {
		return false
	}
	if actor.Role == model.UserRoleAdmin {
		return true
	}
	return actor.ID == attachment.UploadedBy
}

// CanMoveTask reports whether actor may transition a task between stages.
// Creators, the primary assignee and members of the assignment set may move
// their task; admin roles may move anything.
func CanMoveTask(actor *model.User, task *model.Task) bool {
	if actor == nil || task == nil {
		return false
	}
	switch actor.Role {
	case model.UserRoleAdmin, model.UserRoleSalesAdmin:
		return true
	}
	if actor.ID == task.CreatedBy {
		return true
	}
	if task.AssignedTo != "" && actor.ID == task.AssignedTo {
		return true
	}
	return task.HasAssignee(actor.ID)
}

// CanDeleteTask reports whether actor may hard-delete a task. Admin only.
func CanDeleteTask(actor *model.User) bool {
	return actor != nil && actor.Role == model.UserRoleAdmin
}

// CanCreateTask reports whether actor may create tasks. Clients and plain
// members cannot.
func CanCreateTask(actor *model.User) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case model.UserRoleAdmin, model.UserRoleSalesAdmin:
		return true
	}
	return false
}
