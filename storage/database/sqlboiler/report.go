// Package boiledrepos runs the reporting queries through sqlboiler's raw query binder.
package boiledrepos

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/report"
	"github.com/trezcool/campus/core/user"
)

var systemStatsQuery = `SELECT
	(SELECT COUNT(*) FROM users) AS users,
	(SELECT COUNT(*) FROM users WHERE is_active) AS active_users,
	(SELECT COUNT(*) FROM users WHERE role = '` + user.RoleAdmin + `') AS admins,
	(SELECT COUNT(*) FROM users WHERE role = '` + user.RoleDean + `') AS deans,
	(SELECT COUNT(*) FROM users WHERE role = '` + user.RoleTeacher + `') AS teachers,
	(SELECT COUNT(*) FROM users WHERE role = '` + user.RoleStudent + `') AS students,
	(SELECT COUNT(*) FROM users WHERE role = '` + user.RoleAccounting + `') AS accounting,
	(SELECT COUNT(*) FROM faculties) AS faculties,
	(SELECT COUNT(*) FROM groups) AS groups,
	(SELECT COUNT(*) FROM subjects) AS subjects,
	(SELECT COUNT(*) FROM lessons) AS lessons,
	(SELECT COUNT(*) FROM assignments) AS assignments,
	(SELECT COUNT(*) FROM submissions) AS submissions`

const groupStatsQuery = `SELECT g.id AS group_id, g.name, g.course_year,
	(SELECT COUNT(*) FROM users u WHERE u.group_id = g.id AND u.role = $2) AS students,
	(SELECT COUNT(DISTINCT ta.subject_id) FROM teacher_assignments ta WHERE ta.group_id = g.id) AS subjects
	FROM groups g WHERE g.faculty_id = $1
	ORDER BY g.course_year, g.name`

type count struct {
	N int `boil:"n"`
}

type reportRepository struct {
	exec core.DBExecutor
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(exec core.DBExecutor) *reportRepository {
	return &reportRepository{exec: exec}
}

func (repo *reportRepository) executor() boil.ContextExecutor {
	return repo.exec
}

func (repo *reportRepository) SystemStats(ctx context.Context) (report.SystemStats, error) {
	var st report.SystemStats
	err := queries.Raw(systemStatsQuery).Bind(ctx, repo.executor(), &st)
	return st, errors.Wrap(err, "selecting system stats")
}

func (repo *reportRepository) GroupStats(ctx context.Context, facultyID int) ([]report.GroupStats, error) {
	stats := []report.GroupStats{}
	err := queries.Raw(groupStatsQuery, facultyID, user.RoleStudent).Bind(ctx, repo.executor(), &stats)
	return stats, errors.Wrap(err, "selecting group stats")
}

func (repo *reportRepository) FacultyTeacherCount(ctx context.Context, facultyID int) (int, error) {
	var c count
	err := queries.Raw(`SELECT COUNT(DISTINCT ta.teacher_id) AS n FROM teacher_assignments ta
		JOIN groups g ON g.id = ta.group_id WHERE g.faculty_id = $1`, facultyID).Bind(ctx, repo.executor(), &c)
	return c.N, errors.Wrap(err, "counting faculty teachers")
}

func (repo *reportRepository) FacultySubjectCount(ctx context.Context, facultyID int) (int, error) {
	var c count
	err := queries.Raw(`SELECT COUNT(*) AS n FROM subjects WHERE faculty_id = $1`, facultyID).
		Bind(ctx, repo.executor(), &c)
	return c.N, errors.Wrap(err, "counting faculty subjects")
}
