package authz

import (
	"testing"

	"project-management-api/internal/apperrors"
	"project-management-api/internal/models"

	"github.com/stretchr/testify/require"
)

var (
	admin   = Subject{ID: 1, Role: models.RoleAdmin}
	manager = Subject{ID: 2, Role: models.RoleProjectManager}
	other   = Subject{ID: 3, Role: models.RoleProjectManager}
	alice   = Subject{ID: 5, Role: models.RoleDeveloper}
	bob     = Subject{ID: 6, Role: models.RoleDeveloper}
)

func uintPtr(v uint) *uint { return &v }

// project 7 is managed by 2 and has members 3 and 6; project 9 is managed
// by 2 and has member 6 only.
var (
	project7 = ProjectRef{ID: 7, ManagerID: 2, MemberIDs: []uint{3, 6}}
	project9 = ProjectRef{ID: 9, ManagerID: 2, MemberIDs: []uint{6}}
)

func TestAdminIsUnrestricted(t *testing.T) {
	refs := []Ref{UserRef{}, UserRef{ID: 4}, project9, TaskRef{Project: project9}, CommentRef{}, UserStoryRef{Project: project9}}
	actions := []Action{ActionList, ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionComment}
	for _, ref := range refs {
		for _, action := range actions {
			require.True(t, Allowed(admin, action, ref), "%s %s", action, ref.Resource())
		}
	}
}

func TestOnlyAdminManagesUsers(t *testing.T) {
	for _, s := range []Subject{manager, alice} {
		require.False(t, Allowed(s, ActionList, UserRef{}))
		require.False(t, Allowed(s, ActionCreate, UserRef{}))
		require.False(t, Allowed(s, ActionUpdate, UserRef{ID: 4}))
		require.False(t, Allowed(s, ActionDelete, UserRef{ID: 4}))
		require.True(t, Allowed(s, ActionRead, UserRef{ID: 4}))
	}
}

func TestProjectManagerRules(t *testing.T) {
	require.True(t, Allowed(manager, ActionRead, project7))
	require.True(t, Allowed(manager, ActionUpdate, project7))
	require.True(t, Allowed(manager, ActionDelete, project7))
	require.True(t, Allowed(manager, ActionCreate, ProjectRef{ManagerID: manager.ID}))
	require.False(t, Allowed(manager, ActionCreate, ProjectRef{ManagerID: other.ID}))

	// other is a member of project 7 but does not manage it
	require.True(t, Allowed(other, ActionRead, project7))
	require.False(t, Allowed(other, ActionUpdate, project7))
	require.False(t, Allowed(other, ActionDelete, project7))
	require.False(t, Allowed(other, ActionRead, project9))

	task := TaskRef{ID: 1, Project: project7}
	require.True(t, Allowed(manager, ActionCreate, task))
	require.True(t, Allowed(manager, ActionUpdate, task))
	require.True(t, Allowed(manager, ActionDelete, task))
	require.False(t, Allowed(other, ActionRead, task))
	require.False(t, Allowed(other, ActionCreate, task))

	comment := CommentRef{ID: 1, AuthorID: 6, Task: task}
	require.True(t, Allowed(manager, ActionUpdate, comment))
	require.True(t, Allowed(manager, ActionDelete, comment))
	require.False(t, Allowed(other, ActionDelete, comment))
}

func TestDeveloperRules(t *testing.T) {
	require.False(t, Allowed(alice, ActionRead, project9))
	require.True(t, Allowed(bob, ActionRead, project9))
	require.False(t, Allowed(bob, ActionUpdate, project9))
	require.False(t, Allowed(bob, ActionDelete, project9))
	require.False(t, Allowed(bob, ActionCreate, ProjectRef{ManagerID: bob.ID}))

	require.True(t, Allowed(bob, ActionCreate, TaskRef{Project: project9}))
	require.False(t, Allowed(alice, ActionCreate, TaskRef{Project: project9}))

	assignedToAlice := TaskRef{ID: 10, AssigneeID: uintPtr(alice.ID), Project: project9}
	require.True(t, Allowed(alice, ActionRead, assignedToAlice))
	require.True(t, Allowed(alice, ActionUpdate, assignedToAlice))
	require.True(t, Allowed(alice, ActionComment, assignedToAlice))

	// bob is a member and can read and comment, but only the assignee updates
	require.True(t, Allowed(bob, ActionRead, assignedToAlice))
	require.True(t, Allowed(bob, ActionComment, assignedToAlice))
	require.False(t, Allowed(bob, ActionUpdate, assignedToAlice))
}

func TestDeveloperNeverDeletesTasks(t *testing.T) {
	own := TaskRef{ID: 10, AssigneeID: uintPtr(alice.ID), Project: ProjectRef{ID: 1, ManagerID: 2, MemberIDs: []uint{alice.ID}}}
	err := Authorize(alice, ActionDelete, own)
	require.True(t, apperrors.Is(err, apperrors.KindForbidden))
}

func TestNonMemberDeveloperCannotReadTask(t *testing.T) {
	// alice (developer, id 5) is not a member of project 9 and not the assignee
	task := TaskRef{ID: 11, AssigneeID: uintPtr(bob.ID), Project: project9}
	err := Authorize(alice, ActionRead, task)
	require.Error(t, err)

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.KindForbidden, appErr.Kind)
	require.Equal(t, "read", appErr.Action)
	require.Equal(t, "task", appErr.Resource)
}

func TestUserStoriesFollowProject(t *testing.T) {
	story := UserStoryRef{ID: 1, Project: project9}
	require.True(t, Allowed(bob, ActionRead, story))
	require.False(t, Allowed(bob, ActionCreate, story))
	require.True(t, Allowed(manager, ActionCreate, story))
	require.False(t, Allowed(alice, ActionRead, story))
}

// The list scope and the single-resource read check must agree for every
// subject on every fixture.
func TestScopeAgreesWithReadCheck(t *testing.T) {
	projects := []ProjectRef{project7, project9, {ID: 12, ManagerID: 3}}
	var tasks []TaskRef
	for _, p := range projects {
		tasks = append(tasks,
			TaskRef{ID: p.ID*10 + 1, Project: p},
			TaskRef{ID: p.ID*10 + 2, AssigneeID: uintPtr(alice.ID), Project: p},
			TaskRef{ID: p.ID*10 + 3, AssigneeID: uintPtr(bob.ID), Project: p},
		)
	}

	for _, s := range []Subject{admin, manager, other, alice, bob} {
		for _, p := range projects {
			require.Equal(t, ProjectScope(s).MatchesProject(p), Allowed(s, ActionRead, p), "subject %d project %d", s.ID, p.ID)
		}
		for _, task := range tasks {
			require.Equal(t, TaskScope(s).MatchesTask(task), Allowed(s, ActionRead, task), "subject %d task %d", s.ID, task.ID)
		}
	}
}

func TestDeveloperProjectScopeIsMembershipOnly(t *testing.T) {
	scope := ProjectScope(alice)
	require.Equal(t, Scope{MemberID: alice.ID}, scope)
	// managing a project does not make it visible to a developer
	require.False(t, scope.MatchesProject(ProjectRef{ID: 1, ManagerID: alice.ID}))
	require.True(t, scope.MatchesProject(ProjectRef{ID: 2, ManagerID: 2, MemberIDs: []uint{alice.ID}}))
}

func TestUnknownRoleSeesNothing(t *testing.T) {
	s := Subject{ID: 8, Role: models.Role("guest")}
	require.True(t, ProjectScope(s).Empty())
	require.True(t, TaskScope(s).Empty())
	require.False(t, Allowed(s, ActionRead, project7))
}
