// Package access decides what an actor may do with course resources and whom they may message.
// Each role has its own Policy; rules are evaluated fresh on every call, nothing is cached.
package access

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/user"
)

type (
	// Resource locates course content: a subject, optionally narrowed to one group.
	Resource struct {
		SubjectID int
		FacultyID int
		GroupID   int // 0: any group of the subject
	}

	// Relations looks up the enrollment and teaching relationships policies depend on.
	Relations interface {
		QueryTeacherAssignments(ctx context.Context, filter academics.AssignmentFilter) ([]academics.TeacherAssignment, error)
		GetGroup(ctx context.Context, id int) (academics.Group, error)
		FacultyGroupIDs(ctx context.Context, facultyID int) ([]int, error)
		TaughtGroupIDs(ctx context.Context, teacherID int) ([]int, error)
	}

	Policy interface {
		CanView(ctx context.Context, actor user.User, res Resource) (bool, error)
		CanEdit(ctx context.Context, actor user.User, res Resource) (bool, error)
		CanGrade(ctx context.Context, actor user.User, res Resource) (bool, error)
		CanMessage(ctx context.Context, actor, target user.User) (bool, error)
		// VisibleScope describes the users the actor may exchange messages with.
		VisibleScope(ctx context.Context, actor user.User) (Scope, error)
	}
)

func SubjectResource(s academics.Subject) Resource {
	return Resource{SubjectID: s.ID, FacultyID: s.FacultyID}
}

func GroupResource(s academics.Subject, groupID int) Resource {
	return Resource{SubjectID: s.ID, FacultyID: s.FacultyID, GroupID: groupID}
}

// Evaluator dispatches checks to the policy of the actor's role.
type Evaluator struct {
	policies map[string]Policy
}

func NewEvaluator(rels Relations) *Evaluator {
	return &Evaluator{
		policies: map[string]Policy{
			user.RoleAdmin:      adminPolicy{},
			user.RoleDean:       deanPolicy{rels: rels},
			user.RoleTeacher:    teacherPolicy{rels: rels},
			user.RoleStudent:    studentPolicy{rels: rels},
			user.RoleAccounting: accountingPolicy{},
		},
	}
}

// For returns the policy of a role; unknown roles are denied everything.
func (ev *Evaluator) For(role string) Policy {
	if p, ok := ev.policies[role]; ok {
		return p
	}
	return denyPolicy{}
}

func (ev *Evaluator) CanView(ctx context.Context, actor user.User, res Resource) (bool, error) {
	return ev.For(actor.Role).CanView(ctx, actor, res)
}

func (ev *Evaluator) CanEdit(ctx context.Context, actor user.User, res Resource) (bool, error) {
	return ev.For(actor.Role).CanEdit(ctx, actor, res)
}

func (ev *Evaluator) CanGrade(ctx context.Context, actor user.User, res Resource) (bool, error) {
	return ev.For(actor.Role).CanGrade(ctx, actor, res)
}

func (ev *Evaluator) CanMessage(ctx context.Context, actor, target user.User) (bool, error) {
	return ev.For(actor.Role).CanMessage(ctx, actor, target)
}

func (ev *Evaluator) Scope(ctx context.Context, actor user.User) (Scope, error) {
	return ev.For(actor.Role).VisibleScope(ctx, actor)
}

// CanConverse allows a conversation between a and b when either of them may message the other.
func (ev *Evaluator) CanConverse(ctx context.Context, a, b user.User) (bool, error) {
	ok, err := ev.CanMessage(ctx, a, b)
	if err != nil || ok {
		return ok, err
	}
	return ev.CanMessage(ctx, b, a)
}

// Require turns a denied check into core.ErrPermissionDenied.
func Require(ok bool, err error) error {
	if err != nil {
		return errors.Wrap(err, "evaluating access policy")
	}
	if !ok {
		return core.ErrPermissionDenied
	}
	return nil
}

// scopeContains derives CanMessage from VisibleScope so both always agree.
func scopeContains(ctx context.Context, p Policy, actor, target user.User) (bool, error) {
	scope, err := p.VisibleScope(ctx, actor)
	if err != nil {
		return false, err
	}
	return scope.Contains(target), nil
}

// hasTeacherAssignment checks that some binding matches filter.
func hasTeacherAssignment(ctx context.Context, rels Relations, filter academics.AssignmentFilter) (bool, error) {
	tas, err := rels.QueryTeacherAssignments(ctx, filter)
	if err != nil {
		return false, errors.Wrap(err, "querying teacher assignments")
	}
	return len(tas) > 0, nil
}
