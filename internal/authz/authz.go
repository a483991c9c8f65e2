// Package authz decides which operations a subject may perform and which
// rows a subject may see. Both answers come from the same rules: the
// single-resource read check is the list scope evaluated against one row,
// so list filtering and item access cannot drift apart.
package authz

import (
	"slices"

	"project-management-api/internal/apperrors"
	"project-management-api/internal/models"
)

// Action is an operation on a resource.
type Action string

const (
	ActionList    Action = "list"
	ActionRead    Action = "read"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionComment Action = "comment"
)

// Resource names a resource type.
type Resource string

const (
	ResourceUser      Resource = "user"
	ResourceProject   Resource = "project"
	ResourceTask      Resource = "task"
	ResourceComment   Resource = "comment"
	ResourceUserStory Resource = "user_story"
)

// Subject is the authenticated actor.
type Subject struct {
	ID   uint
	Role models.Role
}

// IsAdmin reports whether the subject is unrestricted.
func (s Subject) IsAdmin() bool { return s.Role == models.RoleAdmin }

// Ref is a reference to a concrete resource carrying the ownership facts
// the rules depend on.
type Ref interface {
	Resource() Resource
}

// UserRef references a user record. A zero ID means the users collection.
type UserRef struct {
	ID uint
}

// ProjectRef references a project.
type ProjectRef struct {
	ID        uint
	ManagerID uint
	MemberIDs []uint
}

// TaskRef references a task together with its owning project.
type TaskRef struct {
	ID         uint
	AssigneeID *uint
	Project    ProjectRef
}

// CommentRef references a comment on a task.
type CommentRef struct {
	ID       uint
	AuthorID uint
	Task     TaskRef
}

// UserStoryRef references a user story within a project.
type UserStoryRef struct {
	ID      uint
	Project ProjectRef
}

func (UserRef) Resource() Resource      { return ResourceUser }
func (ProjectRef) Resource() Resource   { return ResourceProject }
func (TaskRef) Resource() Resource      { return ResourceTask }
func (CommentRef) Resource() Resource   { return ResourceComment }
func (UserStoryRef) Resource() Resource { return ResourceUserStory }

// HasMember reports whether userID is a member of the project.
func (p ProjectRef) HasMember(userID uint) bool {
	return slices.Contains(p.MemberIDs, userID)
}

// IsManagedBy reports whether userID manages the project.
func (p ProjectRef) IsManagedBy(userID uint) bool {
	return p.ManagerID != 0 && p.ManagerID == userID
}

// IsAssignedTo reports whether userID is the task's assignee.
func (t TaskRef) IsAssignedTo(userID uint) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// ProjectRefOf builds a ProjectRef from a project with members loaded.
func ProjectRefOf(p *models.Project) ProjectRef {
	return ProjectRef{ID: p.ID, ManagerID: p.ManagerID, MemberIDs: p.MemberIDs()}
}

// TaskRefOf builds a TaskRef from a task with its project loaded.
func TaskRefOf(t *models.Task) TaskRef {
	ref := TaskRef{ID: t.ID, AssigneeID: t.AssigneeID}
	if t.Project != nil {
		ref.Project = ProjectRefOf(t.Project)
	}
	return ref
}

// Allowed reports whether subject may perform action on ref.
func Allowed(subject Subject, action Action, ref Ref) bool {
	if subject.IsAdmin() {
		return true
	}
	switch r := ref.(type) {
	case UserRef:
		return allowUser(subject, action, r)
	case ProjectRef:
		return allowProject(subject, action, r)
	case TaskRef:
		return allowTask(subject, action, r)
	case CommentRef:
		return allowComment(subject, action, r)
	case UserStoryRef:
		return allowUserStory(subject, action, r)
	}
	return false
}

// Authorize returns a Forbidden error when subject may not perform action
// on ref.
func Authorize(subject Subject, action Action, ref Ref) error {
	if Allowed(subject, action, ref) {
		return nil
	}
	return apperrors.Forbidden(string(action), string(ref.Resource()))
}

// Any user may look up a single user; managing users is admin only.
func allowUser(subject Subject, action Action, r UserRef) bool {
	return action == ActionRead && r.ID != 0
}

func allowProject(subject Subject, action Action, r ProjectRef) bool {
	switch subject.Role {
	case models.RoleProjectManager:
		switch action {
		case ActionRead:
			return ProjectScope(subject).MatchesProject(r)
		case ActionCreate, ActionUpdate, ActionDelete:
			return r.IsManagedBy(subject.ID)
		}
	case models.RoleDeveloper:
		if action == ActionRead {
			return ProjectScope(subject).MatchesProject(r)
		}
	}
	return false
}

func allowTask(subject Subject, action Action, r TaskRef) bool {
	switch subject.Role {
	case models.RoleProjectManager:
		switch action {
		case ActionRead:
			return TaskScope(subject).MatchesTask(r)
		case ActionCreate, ActionUpdate, ActionDelete, ActionComment:
			return r.Project.IsManagedBy(subject.ID)
		}
	case models.RoleDeveloper:
		switch action {
		case ActionRead, ActionComment:
			return TaskScope(subject).MatchesTask(r)
		case ActionCreate:
			return r.Project.HasMember(subject.ID)
		case ActionUpdate:
			return r.IsAssignedTo(subject.ID)
		case ActionDelete:
			// Developers never delete tasks, assigned or not.
			return false
		}
	}
	return false
}

func allowComment(subject Subject, action Action, r CommentRef) bool {
	switch action {
	case ActionRead:
		return allowTask(subject, ActionRead, r.Task)
	case ActionCreate:
		return allowTask(subject, ActionComment, r.Task)
	case ActionUpdate, ActionDelete:
		return subject.Role == models.RoleProjectManager && r.Task.Project.IsManagedBy(subject.ID)
	}
	return false
}

func allowUserStory(subject Subject, action Action, r UserStoryRef) bool {
	if action == ActionRead || action == ActionList {
		return allowProject(subject, ActionRead, r.Project)
	}
	return allowProject(subject, ActionUpdate, r.Project)
}
