// Package report computes dashboard counters and faculty reports.
package report

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/user"
)

type (
	SystemStats struct {
		Users       int `json:"users" boil:"users"`
		ActiveUsers int `json:"active_users" boil:"active_users"`
		Admins      int `json:"admins" boil:"admins"`
		Deans       int `json:"deans" boil:"deans"`
		Teachers    int `json:"teachers" boil:"teachers"`
		Students    int `json:"students" boil:"students"`
		Accounting  int `json:"accounting" boil:"accounting"`
		Faculties   int `json:"faculties" boil:"faculties"`
		Groups      int `json:"groups" boil:"groups"`
		Subjects    int `json:"subjects" boil:"subjects"`
		Lessons     int `json:"lessons" boil:"lessons"`
		Assignments int `json:"assignments" boil:"assignments"`
		Submissions int `json:"submissions" boil:"submissions"`
	}

	GroupStats struct {
		GroupID    int    `json:"group_id" boil:"group_id"`
		Name       string `json:"name" boil:"name"`
		CourseYear int    `json:"course_year" boil:"course_year"`
		Students   int    `json:"students" boil:"students"`
		Subjects   int    `json:"subjects" boil:"subjects"`
	}

	FacultyReport struct {
		Faculty  academics.Faculty `json:"faculty"`
		Students int               `json:"students"`
		Teachers int               `json:"teachers"` // distinct teachers bound to the faculty's groups
		Subjects int               `json:"subjects"`
		Groups   []GroupStats      `json:"groups"`
	}

	Repository interface {
		SystemStats(ctx context.Context) (SystemStats, error)
		// GroupStats returns per group counters of a faculty, ordered by course year then name.
		GroupStats(ctx context.Context, facultyID int) ([]GroupStats, error)
		FacultyTeacherCount(ctx context.Context, facultyID int) (int, error)
		FacultySubjectCount(ctx context.Context, facultyID int) (int, error)
	}

	Faculties interface {
		GetFaculty(ctx context.Context, id int) (academics.Faculty, error)
	}

	Service struct {
		repo      Repository
		faculties Faculties
	}
)

func NewService(repo Repository, faculties Faculties) *Service {
	return &Service{repo: repo, faculties: faculties}
}

// DashboardStats returns the global counters to admins and nothing to anybody else.
func (svc *Service) DashboardStats(ctx context.Context, actor user.User) (interface{}, error) {
	if !actor.IsAdmin() {
		return struct{}{}, nil
	}
	st, err := svc.repo.SystemStats(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "computing system stats")
	}
	return st, nil
}

// FacultyReport reports on the dean's own faculty; admins pick any faculty.
func (svc *Service) FacultyReport(ctx context.Context, actor user.User, facultyID int) (FacultyReport, error) {
	switch {
	case actor.IsDean():
		facultyID = actor.FacultyID
	case !actor.IsAdmin():
		return FacultyReport{}, core.ErrPermissionDenied
	}
	f, err := svc.faculties.GetFaculty(ctx, facultyID)
	if err != nil {
		return FacultyReport{}, err
	}

	rep := FacultyReport{Faculty: f}
	if rep.Groups, err = svc.repo.GroupStats(ctx, f.ID); err != nil {
		return FacultyReport{}, errors.Wrap(err, "computing group stats")
	}
	for _, g := range rep.Groups {
		rep.Students += g.Students
	}
	if rep.Teachers, err = svc.repo.FacultyTeacherCount(ctx, f.ID); err != nil {
		return FacultyReport{}, errors.Wrap(err, "counting teachers")
	}
	if rep.Subjects, err = svc.repo.FacultySubjectCount(ctx, f.ID); err != nil {
		return FacultyReport{}, errors.Wrap(err, "counting subjects")
	}
	return rep, nil
}
