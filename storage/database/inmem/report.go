package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/campus/core/report"
	"github.com/trezcool/campus/core/user"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) SystemStats(_ context.Context) (report.SystemStats, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	st := report.SystemStats{
		Users:       len(repo.db.users),
		Faculties:   len(repo.db.faculties),
		Groups:      len(repo.db.groups),
		Subjects:    len(repo.db.subjects),
		Lessons:     len(repo.db.lessons),
		Assignments: len(repo.db.assignments),
		Submissions: len(repo.db.submissions),
	}
	for _, u := range repo.db.users {
		if u.IsActive {
			st.ActiveUsers++
		}
		switch u.Role {
		case user.RoleAdmin:
			st.Admins++
		case user.RoleDean:
			st.Deans++
		case user.RoleTeacher:
			st.Teachers++
		case user.RoleStudent:
			st.Students++
		case user.RoleAccounting:
			st.Accounting++
		}
	}
	return st, nil
}

func (repo *reportRepository) GroupStats(_ context.Context, facultyID int) ([]report.GroupStats, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	stats := make([]report.GroupStats, 0)
	for _, g := range values(repo.db.groups) {
		if g.FacultyID != facultyID {
			continue
		}
		gs := report.GroupStats{GroupID: g.ID, Name: g.Name, CourseYear: g.CourseYear}
		for _, u := range repo.db.users {
			if u.GroupID == g.ID && u.IsStudent() {
				gs.Students++
			}
		}
		subjects := make(map[int]bool)
		for _, ta := range repo.db.tas {
			if ta.GroupID == g.ID {
				subjects[ta.SubjectID] = true
			}
		}
		gs.Subjects = len(subjects)
		stats = append(stats, gs)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].CourseYear != stats[j].CourseYear {
			return stats[i].CourseYear < stats[j].CourseYear
		}
		return stats[i].Name < stats[j].Name
	})
	return stats, nil
}

func (repo *reportRepository) FacultyTeacherCount(_ context.Context, facultyID int) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	teachers := make(map[int]bool)
	for _, ta := range repo.db.tas {
		if g, ok := repo.db.groups[ta.GroupID]; ok && g.FacultyID == facultyID {
			teachers[ta.TeacherID] = true
		}
	}
	return len(teachers), nil
}

func (repo *reportRepository) FacultySubjectCount(_ context.Context, facultyID int) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, s := range repo.db.subjects {
		if s.FacultyID == facultyID {
			n++
		}
	}
	return n, nil
}
