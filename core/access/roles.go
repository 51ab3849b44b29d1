package access

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/user"
)

var (
	_ Policy = adminPolicy{}
	_ Policy = deanPolicy{}
	_ Policy = teacherPolicy{}
	_ Policy = studentPolicy{}
	_ Policy = accountingPolicy{}
	_ Policy = denyPolicy{}
)

// admin: unrestricted.
type adminPolicy struct{}

func (adminPolicy) CanView(context.Context, user.User, Resource) (bool, error)  { return true, nil }
func (adminPolicy) CanEdit(context.Context, user.User, Resource) (bool, error)  { return true, nil }
func (adminPolicy) CanGrade(context.Context, user.User, Resource) (bool, error) { return true, nil }

func (p adminPolicy) CanMessage(ctx context.Context, actor, target user.User) (bool, error) {
	return scopeContains(ctx, p, actor, target)
}

func (adminPolicy) VisibleScope(_ context.Context, actor user.User) (Scope, error) {
	return Scope{ActorID: actor.ID, Everyone: true}, nil
}

// dean: resources of their own faculty; messages the students of it.
type deanPolicy struct {
	rels Relations
}

func (p deanPolicy) CanView(ctx context.Context, actor user.User, res Resource) (bool, error) {
	if actor.FacultyID == 0 {
		return false, nil
	}
	if res.FacultyID == actor.FacultyID {
		return true, nil
	}
	if res.GroupID != 0 {
		g, err := p.rels.GetGroup(ctx, res.GroupID)
		if err != nil {
			if core.IsNotFound(err) {
				return false, nil
			}
			return false, errors.Wrap(err, "finding group")
		}
		return g.FacultyID == actor.FacultyID, nil
	}
	return false, nil
}

func (deanPolicy) CanEdit(context.Context, user.User, Resource) (bool, error)  { return false, nil }
func (deanPolicy) CanGrade(context.Context, user.User, Resource) (bool, error) { return false, nil }

func (p deanPolicy) CanMessage(ctx context.Context, actor, target user.User) (bool, error) {
	return scopeContains(ctx, p, actor, target)
}

func (p deanPolicy) VisibleScope(ctx context.Context, actor user.User) (Scope, error) {
	scope := Scope{ActorID: actor.ID}
	if actor.FacultyID == 0 {
		return scope, nil
	}
	ids, err := p.rels.FacultyGroupIDs(ctx, actor.FacultyID)
	if err != nil {
		return Scope{}, err
	}
	scope.StudentGroupIDs = ids
	return scope, nil
}

// teacher: subjects (and groups) they are bound to; messages their students, teachers and deans.
type teacherPolicy struct {
	rels Relations
}

func (p teacherPolicy) teaches(ctx context.Context, actor user.User, res Resource) (bool, error) {
	if res.SubjectID == 0 {
		return false, nil
	}
	return hasTeacherAssignment(ctx, p.rels, academics.AssignmentFilter{
		TeacherID: actor.ID,
		SubjectID: res.SubjectID,
		GroupID:   res.GroupID,
	})
}

func (p teacherPolicy) CanView(ctx context.Context, actor user.User, res Resource) (bool, error) {
	return p.teaches(ctx, actor, res)
}

func (p teacherPolicy) CanEdit(ctx context.Context, actor user.User, res Resource) (bool, error) {
	return p.teaches(ctx, actor, res)
}

func (p teacherPolicy) CanGrade(ctx context.Context, actor user.User, res Resource) (bool, error) {
	return p.teaches(ctx, actor, res)
}

func (p teacherPolicy) CanMessage(ctx context.Context, actor, target user.User) (bool, error) {
	return scopeContains(ctx, p, actor, target)
}

func (p teacherPolicy) VisibleScope(ctx context.Context, actor user.User) (Scope, error) {
	ids, err := p.rels.TaughtGroupIDs(ctx, actor.ID)
	if err != nil {
		return Scope{}, err
	}
	return Scope{
		ActorID:         actor.ID,
		StudentGroupIDs: ids,
		Roles:           []string{user.RoleTeacher, user.RoleDean},
	}, nil
}

// student: subjects bound to their group; messages their teachers and their faculty's dean.
type studentPolicy struct {
	rels Relations
}

func (p studentPolicy) CanView(ctx context.Context, actor user.User, res Resource) (bool, error) {
	if actor.GroupID == 0 || res.SubjectID == 0 {
		return false, nil
	}
	if res.GroupID != 0 && res.GroupID != actor.GroupID {
		return false, nil
	}
	return hasTeacherAssignment(ctx, p.rels, academics.AssignmentFilter{
		SubjectID: res.SubjectID,
		GroupID:   actor.GroupID,
	})
}

func (studentPolicy) CanEdit(context.Context, user.User, Resource) (bool, error)  { return false, nil }
func (studentPolicy) CanGrade(context.Context, user.User, Resource) (bool, error) { return false, nil }

func (p studentPolicy) CanMessage(ctx context.Context, actor, target user.User) (bool, error) {
	return scopeContains(ctx, p, actor, target)
}

func (p studentPolicy) VisibleScope(ctx context.Context, actor user.User) (Scope, error) {
	scope := Scope{ActorID: actor.ID}
	if actor.GroupID == 0 {
		return scope, nil
	}

	tas, err := p.rels.QueryTeacherAssignments(ctx, academics.AssignmentFilter{GroupID: actor.GroupID})
	if err != nil {
		return Scope{}, errors.Wrap(err, "querying teacher assignments")
	}
	ids := make([]int, 0, len(tas))
	for _, ta := range tas {
		ids = append(ids, ta.TeacherID)
	}
	scope.UserIDs = core.UniqueInts(ids)

	g, err := p.rels.GetGroup(ctx, actor.GroupID)
	if err != nil {
		if core.IsNotFound(err) {
			return scope, nil
		}
		return Scope{}, errors.Wrap(err, "finding group")
	}
	scope.DeanFacultyIDs = []int{g.FacultyID}
	return scope, nil
}

// accounting: no course content; messages everyone.
type accountingPolicy struct{}

func (accountingPolicy) CanView(context.Context, user.User, Resource) (bool, error)  { return false, nil }
func (accountingPolicy) CanEdit(context.Context, user.User, Resource) (bool, error)  { return false, nil }
func (accountingPolicy) CanGrade(context.Context, user.User, Resource) (bool, error) { return false, nil }

func (p accountingPolicy) CanMessage(ctx context.Context, actor, target user.User) (bool, error) {
	return scopeContains(ctx, p, actor, target)
}

func (accountingPolicy) VisibleScope(_ context.Context, actor user.User) (Scope, error) {
	return Scope{ActorID: actor.ID, Everyone: true}, nil
}

type denyPolicy struct{}

func (denyPolicy) CanView(context.Context, user.User, Resource) (bool, error)       { return false, nil }
func (denyPolicy) CanEdit(context.Context, user.User, Resource) (bool, error)       { return false, nil }
func (denyPolicy) CanGrade(context.Context, user.User, Resource) (bool, error)      { return false, nil }
func (denyPolicy) CanMessage(context.Context, user.User, user.User) (bool, error)   { return false, nil }
func (denyPolicy) VisibleScope(_ context.Context, actor user.User) (Scope, error) { return Scope{ActorID: actor.ID}, nil }
