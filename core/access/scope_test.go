package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/user"
)

func TestScope_Filters(t *testing.T) {
	tests := []struct {
		name      string
		scope     Scope
		wantEmpty bool
		want      []user.QueryFilter
	}{
		{name: "empty", scope: Scope{ActorID: 1}, wantEmpty: true},
		{name: "everyone", scope: Scope{ActorID: 1, Everyone: true}, want: []user.QueryFilter{{}}},
		{
			name:  "union",
			scope: Scope{ActorID: 1, StudentGroupIDs: []int{10}, UserIDs: []int{3}, Roles: []string{user.RoleTeacher}, DeanFacultyIDs: []int{1}},
			want: []user.QueryFilter{
				{Roles: []string{user.RoleStudent}, GroupIDs: []int{10}},
				{IDs: []int{3}},
				{Roles: []string{user.RoleTeacher}},
				{Roles: []string{user.RoleDean}, FacultyIDs: []int{1}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantEmpty, tt.scope.IsEmpty())
			assert.Equal(t, tt.want, tt.scope.Filters())
		})
	}
}

func TestEvaluator_Scope(t *testing.T) {
	ev := newTestEvaluator()
	ctx := context.Background()

	tests := []struct {
		name  string
		actor user.User
		want  Scope
	}{
		{name: "admin", actor: admin, want: Scope{ActorID: admin.ID, Everyone: true}},
		{name: "accounting", actor: cashier, want: Scope{ActorID: cashier.ID, Everyone: true}},
		{name: "teacher", actor: teacher, want: Scope{ActorID: teacher.ID, StudentGroupIDs: []int{10}, Roles: []string{user.RoleTeacher, user.RoleDean}}},
		{name: "student", actor: student, want: Scope{ActorID: student.ID, UserIDs: []int{teacher.ID}, DeanFacultyIDs: []int{1}}},
		{name: "student without group", actor: user.User{ID: 12, Role: user.RoleStudent}, want: Scope{ActorID: 12}},
		{name: "unknown role", actor: nobody, want: Scope{ActorID: nobody.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Scope(ctx, tt.actor)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("dean", func(t *testing.T) {
		got, err := ev.Scope(ctx, dean)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int{10, 11}, got.StudentGroupIDs)
		assert.Empty(t, got.Roles)
	})
}
