package authz

import "project-management-api/internal/models"

// Scope is the row-visibility predicate for one subject. A row is visible
// when Unrestricted is set or when any non-zero condition holds.
//
// For projects: ManagerID matches projects.manager_id, MemberID matches a
// project_members row. For tasks the same two conditions apply to the
// task's project, and AssigneeID matches tasks.assignee_id.
type Scope struct {
	Unrestricted bool
	ManagerID    uint
	MemberID     uint
	AssigneeID   uint
}

// Empty reports whether the scope admits no rows at all.
func (s Scope) Empty() bool {
	return !s.Unrestricted && s.ManagerID == 0 && s.MemberID == 0 && s.AssigneeID == 0
}

// ProjectScope narrows project lists for subject.
func ProjectScope(subject Subject) Scope {
	switch subject.Role {
	case models.RoleAdmin:
		return Scope{Unrestricted: true}
	case models.RoleProjectManager:
		return Scope{ManagerID: subject.ID, MemberID: subject.ID}
	case models.RoleDeveloper:
		return Scope{MemberID: subject.ID}
	}
	return Scope{}
}

// TaskScope narrows task lists for subject.
func TaskScope(subject Subject) Scope {
	switch subject.Role {
	case models.RoleAdmin:
		return Scope{Unrestricted: true}
	case models.RoleProjectManager:
		return Scope{ManagerID: subject.ID}
	case models.RoleDeveloper:
		return Scope{AssigneeID: subject.ID, MemberID: subject.ID}
	}
	return Scope{}
}

// MatchesProject evaluates the scope against a single project.
func (s Scope) MatchesProject(p ProjectRef) bool {
	if s.Unrestricted {
		return true
	}
	if s.ManagerID != 0 && p.IsManagedBy(s.ManagerID) {
		return true
	}
	return s.MemberID != 0 && p.HasMember(s.MemberID)
}

// MatchesTask evaluates the scope against a single task.
func (s Scope) MatchesTask(t TaskRef) bool {
	if s.Unrestricted {
		return true
	}
	if s.AssigneeID != 0 && t.IsAssignedTo(s.AssigneeID) {
		return true
	}
	if s.ManagerID != 0 && t.Project.IsManagedBy(s.ManagerID) {
		return true
	}
	return s.MemberID != 0 && t.Project.HasMember(s.MemberID)
}
