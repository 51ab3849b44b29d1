package access

import (
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

// Scope is the set of users an actor may message, expressed as a union of clauses.
// The actor never belongs to their own scope.
type Scope struct {
	ActorID int

	Everyone        bool
	StudentGroupIDs []int    // students of these groups
	UserIDs         []int    // explicit users
	Roles           []string // every user with one of these roles
	DeanFacultyIDs  []int    // deans of these faculties
}

// Contains reports whether target is in the scope.
func (s Scope) Contains(target user.User) bool {
	if target.ID == s.ActorID {
		return false
	}
	switch {
	case s.Everyone:
		return true
	case target.IsStudent() && target.GroupID != 0 && core.ContainsInt(s.StudentGroupIDs, target.GroupID):
		return true
	case core.ContainsInt(s.UserIDs, target.ID):
		return true
	case target.HasAnyRole(s.Roles...):
		return true
	case target.IsDean() && target.FacultyID != 0 && core.ContainsInt(s.DeanFacultyIDs, target.FacultyID):
		return true
	}
	return false
}

// IsEmpty reports whether the scope can match anybody.
func (s Scope) IsEmpty() bool {
	return !s.Everyone && len(s.StudentGroupIDs) == 0 && len(s.UserIDs) == 0 && len(s.Roles) == 0 &&
		len(s.DeanFacultyIDs) == 0
}

// Filters splits the scope into user queries whose union covers it.
// An Everyone scope yields a single empty filter.
func (s Scope) Filters() []user.QueryFilter {
	if s.Everyone {
		return []user.QueryFilter{{}}
	}
	var filters []user.QueryFilter
	if len(s.StudentGroupIDs) > 0 {
		filters = append(filters, user.QueryFilter{Roles: []string{user.RoleStudent}, GroupIDs: s.StudentGroupIDs})
	}
	if len(s.UserIDs) > 0 {
		filters = append(filters, user.QueryFilter{IDs: s.UserIDs})
	}
	if len(s.Roles) > 0 {
		filters = append(filters, user.QueryFilter{Roles: s.Roles})
	}
	if len(s.DeanFacultyIDs) > 0 {
		filters = append(filters, user.QueryFilter{Roles: []string{user.RoleDean}, FacultyIDs: s.DeanFacultyIDs})
	}
	return filters
}
