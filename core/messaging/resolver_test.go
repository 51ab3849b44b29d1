package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/user"
)

type fakeUsers []user.User

func (fu fakeUsers) GetByID(_ context.Context, id int) (user.User, error) {
	for _, u := range fu {
		if u.ID == id {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (fu fakeUsers) Query(_ context.Context, filter *user.QueryFilter, _ []core.DBOrdering) ([]user.User, error) {
	out := make([]user.User, 0)
	for _, u := range fu {
		if filter == nil || filter.Match(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeRelations struct {
	groups      []academics.Group
	assignments []academics.TeacherAssignment
}

func (r fakeRelations) QueryTeacherAssignments(_ context.Context, filter academics.AssignmentFilter) ([]academics.TeacherAssignment, error) {
	out := make([]academics.TeacherAssignment, 0)
	for _, ta := range r.assignments {
		if filter.Match(ta) {
			out = append(out, ta)
		}
	}
	return out, nil
}

func (r fakeRelations) GetGroup(_ context.Context, id int) (academics.Group, error) {
	for _, g := range r.groups {
		if g.ID == id {
			return g, nil
		}
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

var (
	tAdmin   = user.User{ID: 1, Name: "Ada Admin", Role: user.RoleAdmin}
	tDean    = user.User{ID: 2, Name: "Dina Dean", Role: user.RoleDean, FacultyID: 1}
	tLect    = user.User{ID: 3, Name: "Leo Lecturer", Role: user.RoleTeacher}
	tTutor   = user.User{ID: 4, Name: "Tia Tutor", Role: user.RoleTeacher}
	tStudent = user.User{ID: 5, Name: "Sam Student", Role: user.RoleStudent, GroupID: 10, StudentCode: "S-001"}
	tOther   = user.User{ID: 6, Name: "Olga Other", Role: user.RoleStudent, GroupID: 20, StudentCode: "S-002"}
	tCashier = user.User{ID: 7, Name: "Carl Cashier", Role: user.RoleAccounting}
	tDean2   = user.User{ID: 8, Name: "Dan Dean", Role: user.RoleDean, FacultyID: 2}

	testUsers = fakeUsers{tAdmin, tDean, tLect, tTutor, tStudent, tOther, tCashier, tDean2}
)

func newTestEvaluator() *access.Evaluator {
	rels := fakeRelations{
		groups: []academics.Group{{ID: 10, FacultyID: 1}, {ID: 20, FacultyID: 2}},
		assignments: []academics.TeacherAssignment{
			{ID: 1, TeacherID: tLect.ID, SubjectID: 100, GroupID: 10, LessonType: academics.Lecture},
		},
	}
	return access.NewEvaluator(rels)
}

func newTestResolver() *Resolver {
	return NewResolver(newTestEvaluator(), testUsers)
}

func ids(users []user.User) []int {
	out := make([]int, len(users))
	for i, u := range users {
		out[i] = u.ID
	}
	return out
}

func TestResolver_AllowedCounterparts(t *testing.T) {
	r := newTestResolver()
	ctx := context.Background()

	tests := []struct {
		name   string
		actor  user.User
		search string
		limit  int
		want   []int // sorted by name
	}{
		{name: "admin", actor: tAdmin, want: []int{tCashier.ID, tDean2.ID, tDean.ID, tLect.ID, tOther.ID, tStudent.ID, tTutor.ID}},
		{name: "admin, limited", actor: tAdmin, limit: 2, want: []int{tCashier.ID, tDean2.ID}},
		{name: "dean", actor: tDean, want: []int{tStudent.ID}},
		{name: "teacher", actor: tLect, want: []int{tDean2.ID, tDean.ID, tStudent.ID, tTutor.ID}},
		{name: "teacher without groups", actor: tTutor, want: []int{tDean2.ID, tDean.ID, tLect.ID}},
		{name: "student", actor: tStudent, want: []int{tDean.ID, tLect.ID}},
		{name: "student, search", actor: tStudent, search: "leo", want: []int{tLect.ID}},
		{name: "student, search outside scope", actor: tStudent, search: "olga", want: []int{}},
		{name: "student of a group nobody teaches", actor: tOther, want: []int{tDean2.ID}},
		{name: "accounting, search by student code", actor: tCashier, search: "s-00", want: []int{tOther.ID, tStudent.ID}},
		{name: "unknown role", actor: user.User{ID: 99, Role: "janitor"}, want: []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.AllowedCounterparts(ctx, tt.actor, tt.search, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))

			// membership agrees with CanMessage
			for _, u := range got {
				ok, err := r.CanMessage(ctx, tt.actor, u)
				require.NoError(t, err)
				assert.True(t, ok, "CanMessage(%d)", u.ID)
			}
		})
	}
}
