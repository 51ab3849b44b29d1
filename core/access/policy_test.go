package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/user"
)

type fakeRelations struct {
	groups      map[int]academics.Group
	assignments []academics.TeacherAssignment
}

func (r fakeRelations) QueryTeacherAssignments(_ context.Context, filter academics.AssignmentFilter) ([]academics.TeacherAssignment, error) {
	tas := make([]academics.TeacherAssignment, 0)
	for _, ta := range r.assignments {
		if filter.Match(ta) {
			tas = append(tas, ta)
		}
	}
	return tas, nil
}

func (r fakeRelations) GetGroup(_ context.Context, id int) (academics.Group, error) {
	if g, ok := r.groups[id]; ok {
		return g, nil
	}
	return academics.Group{}, academics.ErrGroupNotFound
}

func (r fakeRelations) FacultyGroupIDs(_ context.Context, facultyID int) ([]int, error) {
	ids := make([]int, 0)
	for _, g := range r.groups {
		if g.FacultyID == facultyID {
			ids = append(ids, g.ID)
		}
	}
	return ids, nil
}

func (r fakeRelations) TaughtGroupIDs(_ context.Context, teacherID int) ([]int, error) {
	ids := make([]int, 0)
	for _, ta := range r.assignments {
		if ta.TeacherID == teacherID {
			ids = append(ids, ta.GroupID)
		}
	}
	return core.UniqueInts(ids), nil
}

// faculty 1 owns groups 10 and 11 and subject 100; faculty 2 owns group 20 and subject 200.
// teacher 3 lectures subject 100 to group 10.
var (
	admin    = user.User{ID: 1, Role: user.RoleAdmin}
	dean     = user.User{ID: 2, Role: user.RoleDean, FacultyID: 1}
	teacher  = user.User{ID: 3, Role: user.RoleTeacher}
	student  = user.User{ID: 4, Role: user.RoleStudent, GroupID: 10}
	cashier  = user.User{ID: 5, Role: user.RoleAccounting}
	other    = user.User{ID: 6, Role: user.RoleStudent, GroupID: 11}
	foreign  = user.User{ID: 7, Role: user.RoleStudent, GroupID: 20}
	dean2    = user.User{ID: 8, Role: user.RoleDean, FacultyID: 2}
	teacher2 = user.User{ID: 9, Role: user.RoleTeacher}
	nobody   = user.User{ID: 10, Role: "janitor"}

	subject        = Resource{SubjectID: 100, FacultyID: 1}
	foreignSubject = Resource{SubjectID: 200, FacultyID: 2}
)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(fakeRelations{
		groups: map[int]academics.Group{
			10: {ID: 10, FacultyID: 1},
			11: {ID: 11, FacultyID: 1},
			20: {ID: 20, FacultyID: 2},
		},
		assignments: []academics.TeacherAssignment{
			{ID: 1, TeacherID: teacher.ID, SubjectID: 100, GroupID: 10, LessonType: academics.Lecture},
		},
	})
}

func TestEvaluator_resources(t *testing.T) {
	ev := newTestEvaluator()
	ctx := context.Background()

	tests := []struct {
		name                      string
		actor                     user.User
		res                       Resource
		wantView, wantEdit, grade bool
	}{
		{name: "admin", actor: admin, res: foreignSubject, wantView: true, wantEdit: true, grade: true},
		{name: "dean: own faculty", actor: dean, res: subject, wantView: true},
		{name: "dean: own faculty group", actor: dean, res: Resource{SubjectID: 200, FacultyID: 2, GroupID: 11}, wantView: true},
		{name: "dean: foreign faculty", actor: dean, res: foreignSubject},
		{name: "dean: without faculty", actor: user.User{ID: 11, Role: user.RoleDean}, res: subject},
		{name: "teacher: assigned subject", actor: teacher, res: subject, wantView: true, wantEdit: true, grade: true},
		{name: "teacher: assigned group", actor: teacher, res: GroupResource(academics.Subject{ID: 100, FacultyID: 1}, 10), wantView: true, wantEdit: true, grade: true},
		{name: "teacher: unassigned group", actor: teacher, res: Resource{SubjectID: 100, FacultyID: 1, GroupID: 11}},
		{name: "teacher: unassigned subject", actor: teacher2, res: subject},
		{name: "student: subject taught to their group", actor: student, res: subject, wantView: true},
		{name: "student: other group resource", actor: student, res: Resource{SubjectID: 100, GroupID: 11}},
		{name: "student: subject not taught to their group", actor: other, res: subject},
		{name: "student: without group", actor: user.User{ID: 12, Role: user.RoleStudent}, res: subject},
		{name: "accounting", actor: cashier, res: subject},
		{name: "unknown role", actor: nobody, res: subject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := ev.CanView(ctx, tt.actor, tt.res)
			require.NoError(t, err)
			assert.Equal(t, tt.wantView, ok, "view")

			ok, err = ev.CanEdit(ctx, tt.actor, tt.res)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEdit, ok, "edit")

			ok, err = ev.CanGrade(ctx, tt.actor, tt.res)
			require.NoError(t, err)
			assert.Equal(t, tt.grade, ok, "grade")
		})
	}
}

func TestEvaluator_CanMessage(t *testing.T) {
	ev := newTestEvaluator()
	ctx := context.Background()

	tests := []struct {
		name          string
		actor, target user.User
		want          bool
	}{
		{name: "nobody messages themself", actor: admin, target: admin},
		{name: "admin: anybody", actor: admin, target: foreign, want: true},
		{name: "accounting: anybody", actor: cashier, target: dean2, want: true},
		{name: "dean: student of their faculty", actor: dean, target: other, want: true},
		{name: "dean: student of another faculty", actor: dean, target: foreign},
		{name: "dean: teacher", actor: dean, target: teacher},
		{name: "teacher: their student", actor: teacher, target: student, want: true},
		{name: "teacher: other student", actor: teacher, target: other},
		{name: "teacher: any teacher", actor: teacher, target: teacher2, want: true},
		{name: "teacher: any dean", actor: teacher, target: dean2, want: true},
		{name: "teacher: accounting", actor: teacher, target: cashier},
		{name: "student: their teacher", actor: student, target: teacher, want: true},
		{name: "student: other teacher", actor: student, target: teacher2},
		{name: "student: their dean", actor: student, target: dean, want: true},
		{name: "student: other dean", actor: student, target: dean2},
		{name: "student: classmate", actor: student, target: user.User{ID: 13, Role: user.RoleStudent, GroupID: 10}},
		{name: "student: accounting", actor: student, target: cashier},
		{name: "unknown role", actor: nobody, target: admin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := ev.CanMessage(ctx, tt.actor, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestEvaluator_CanConverse(t *testing.T) {
	ev := newTestEvaluator()
	ctx := context.Background()

	tests := []struct {
		name string
		a, b user.User
		want bool
	}{
		{name: "either way", a: student, b: teacher, want: true},
		{name: "only the other side may message", a: student, b: cashier, want: true},
		{name: "only the other side may message (dean)", a: other, b: dean, want: true},
		{name: "neither side", a: student, b: foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := ev.CanConverse(ctx, tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)

			ok, err = ev.CanConverse(ctx, tt.b, tt.a)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok, "symmetric")
		})
	}
}

func TestRequire(t *testing.T) {
	assert.NoError(t, Require(true, nil))
	assert.Equal(t, core.ErrPermissionDenied, Require(false, nil))

	err := Require(true, academics.ErrGroupNotFound)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluating access policy")
}
