package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core/academics"
)

type taRow struct {
	ID           int       `db:"id"`
	TeacherID    int       `db:"teacher_id"`
	SubjectID    int       `db:"subject_id"`
	GroupID      int       `db:"group_id"`
	LessonType   string    `db:"lesson_type"`
	AcademicYear string    `db:"academic_year"`
	Semester     int       `db:"semester"`
	AssignedBy   null.Int  `db:"assigned_by"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r taRow) assignment() academics.TeacherAssignment {
	return academics.TeacherAssignment{
		ID:           r.ID,
		TeacherID:    r.TeacherID,
		SubjectID:    r.SubjectID,
		GroupID:      r.GroupID,
		LessonType:   academics.LessonType(r.LessonType),
		AcademicYear: r.AcademicYear,
		Semester:     r.Semester,
		AssignedBy:   r.AssignedBy.Int,
		CreatedAt:    r.CreatedAt,
	}
}

type scheduleRow struct {
	ID         int       `db:"id"`
	SubjectID  int       `db:"subject_id"`
	GroupID    int       `db:"group_id"`
	TeacherID  null.Int  `db:"teacher_id"`
	DayOfWeek  int       `db:"day_of_week"`
	StartTime  string    `db:"start_time"`
	EndTime    string    `db:"end_time"`
	LessonType string    `db:"lesson_type"`
	Room       string    `db:"room"`
	Link       string    `db:"link"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r scheduleRow) entry() academics.ScheduleEntry {
	return academics.ScheduleEntry{
		ID:         r.ID,
		SubjectID:  r.SubjectID,
		GroupID:    r.GroupID,
		TeacherID:  r.TeacherID.Int,
		DayOfWeek:  r.DayOfWeek,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		LessonType: academics.LessonType(r.LessonType),
		Room:       r.Room,
		Link:       r.Link,
		CreatedAt:  r.CreatedAt,
	}
}

type academicsRepository struct {
	db *sqlx.DB
}

var _ academics.Repository = (*academicsRepository)(nil) // interface compliance check

func NewAcademicsRepository(db *sqlx.DB) *academicsRepository {
	return &academicsRepository{db: db}
}

// Faculties

func (repo *academicsRepository) CreateFaculty(ctx context.Context, f academics.Faculty) (academics.Faculty, error) {
	id, err := insert(ctx, repo.db, `INSERT INTO faculties (name, code, description, created_at)
		VALUES (:name, :code, :description, :created_at) RETURNING id`, f)
	if err != nil {
		return academics.Faculty{}, errors.Wrap(err, "inserting faculty")
	}
	f.ID = id
	return f, nil
}

func (repo *academicsRepository) UpdateFaculty(ctx context.Context, f academics.Faculty) (academics.Faculty, error) {
	res, err := namedExec(ctx, repo.db, `UPDATE faculties SET name = :name, code = :code, description = :description
		WHERE id = :id`, f)
	return f, checkAffected(res, err, academics.ErrFacultyNotFound, "updating faculty")
}

func (repo *academicsRepository) DeleteFaculty(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM faculties WHERE id = $1`, id)
	return checkAffected(res, err, academics.ErrFacultyNotFound, "deleting faculty")
}

func (repo *academicsRepository) GetFaculty(ctx context.Context, id int) (academics.Faculty, error) {
	var f academics.Faculty
	err := repo.db.GetContext(ctx, &f, `SELECT id, name, code, description, created_at FROM faculties WHERE id = $1`, id)
	if err != nil {
		return academics.Faculty{}, trapNoRowsErr(err, academics.ErrFacultyNotFound, "selecting faculty")
	}
	return f, nil
}

func (repo *academicsRepository) QueryFaculties(ctx context.Context) ([]academics.Faculty, error) {
	faculties := []academics.Faculty{}
	err := repo.db.SelectContext(ctx, &faculties, `SELECT id, name, code, description, created_at FROM faculties ORDER BY name, id`)
	return faculties, errors.Wrap(err, "selecting faculties")
}

// Groups

const groupColumns = `id, name, faculty_id, course_year, education_type, created_at`

func (repo *academicsRepository) CreateGroup(ctx context.Context, g academics.Group) (academics.Group, error) {
	id, err := insert(ctx, repo.db, `INSERT INTO groups (name, faculty_id, course_year, education_type, created_at)
		VALUES (:name, :faculty_id, :course_year, :education_type, :created_at) RETURNING id`, g)
	if err != nil {
		return academics.Group{}, errors.Wrap(err, "inserting group")
	}
	g.ID = id
	return g, nil
}

func (repo *academicsRepository) UpdateGroup(ctx context.Context, g academics.Group) (academics.Group, error) {
	res, err := namedExec(ctx, repo.db, `UPDATE groups SET name = :name, faculty_id = :faculty_id,
		course_year = :course_year, education_type = :education_type WHERE id = :id`, g)
	return g, checkAffected(res, err, academics.ErrGroupNotFound, "updating group")
}

func (repo *academicsRepository) DeleteGroup(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	return checkAffected(res, err, academics.ErrGroupNotFound, "deleting group")
}

func (repo *academicsRepository) GetGroup(ctx context.Context, id int) (academics.Group, error) {
	var g academics.Group
	if err := repo.db.GetContext(ctx, &g, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id); err != nil {
		return academics.Group{}, trapNoRowsErr(err, academics.ErrGroupNotFound, "selecting group")
	}
	return g, nil
}

func (repo *academicsRepository) QueryGroups(ctx context.Context, filter academics.GroupFilter) ([]academics.Group, error) {
	var w where
	if filter.FacultyID != 0 {
		w.add("faculty_id = ?", filter.FacultyID)
	}
	if filter.IDs != nil {
		w.add("id = ANY(?)", pq.Array(filter.IDs))
	}
	if filter.Name != "" {
		w.add("name = ?", filter.Name)
	}
	groups := []academics.Group{}
	q := repo.db.Rebind(`SELECT ` + groupColumns + ` FROM groups` + w.String() + ` ORDER BY course_year, name, id`)
	err := repo.db.SelectContext(ctx, &groups, q, w.args...)
	return groups, errors.Wrap(err, "selecting groups")
}

// Subjects

const subjectColumns = `id, name, code, faculty_id, credits, description, created_at`

func (repo *academicsRepository) CreateSubject(ctx context.Context, s academics.Subject) (academics.Subject, error) {
	id, err := insert(ctx, repo.db, `INSERT INTO subjects (name, code, faculty_id, credits, description, created_at)
		VALUES (:name, :code, :faculty_id, :credits, :description, :created_at) RETURNING id`, s)
	if err != nil {
		return academics.Subject{}, errors.Wrap(err, "inserting subject")
	}
	s.ID = id
	return s, nil
}

func (repo *academicsRepository) UpdateSubject(ctx context.Context, s academics.Subject) (academics.Subject, error) {
	res, err := namedExec(ctx, repo.db, `UPDATE subjects SET name = :name, code = :code, faculty_id = :faculty_id,
		credits = :credits, description = :description WHERE id = :id`, s)
	return s, checkAffected(res, err, academics.ErrSubjectNotFound, "updating subject")
}

func (repo *academicsRepository) DeleteSubject(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	return checkAffected(res, err, academics.ErrSubjectNotFound, "deleting subject")
}

func (repo *academicsRepository) GetSubject(ctx context.Context, id int) (academics.Subject, error) {
	var s academics.Subject
	if err := repo.db.GetContext(ctx, &s, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id); err != nil {
		return academics.Subject{}, trapNoRowsErr(err, academics.ErrSubjectNotFound, "selecting subject")
	}
	return s, nil
}

func (repo *academicsRepository) QuerySubjects(ctx context.Context, filter academics.SubjectFilter) ([]academics.Subject, error) {
	var w where
	if filter.FacultyID != 0 {
		w.add("faculty_id = ?", filter.FacultyID)
	}
	if filter.IDs != nil {
		w.add("id = ANY(?)", pq.Array(filter.IDs))
	}
	if filter.Code != "" {
		w.add("code = ?", filter.Code)
	}
	subjects := []academics.Subject{}
	q := repo.db.Rebind(`SELECT ` + subjectColumns + ` FROM subjects` + w.String() + ` ORDER BY name, id`)
	err := repo.db.SelectContext(ctx, &subjects, q, w.args...)
	return subjects, errors.Wrap(err, "selecting subjects")
}

// Teacher assignments

const taColumns = `id, teacher_id, subject_id, group_id, lesson_type, academic_year, semester, assigned_by, created_at`

func (repo *academicsRepository) CreateTeacherAssignment(ctx context.Context, ta academics.TeacherAssignment) (academics.TeacherAssignment, error) {
	row := taRow{
		TeacherID:    ta.TeacherID,
		SubjectID:    ta.SubjectID,
		GroupID:      ta.GroupID,
		LessonType:   string(ta.LessonType),
		AcademicYear: ta.AcademicYear,
		Semester:     ta.Semester,
		AssignedBy:   nullInt(ta.AssignedBy),
		CreatedAt:    ta.CreatedAt,
	}
	id, err := insert(ctx, repo.db, `INSERT INTO teacher_assignments
		(teacher_id, subject_id, group_id, lesson_type, academic_year, semester, assigned_by, created_at)
		VALUES (:teacher_id, :subject_id, :group_id, :lesson_type, :academic_year, :semester, :assigned_by, :created_at)
		RETURNING id`, row)
	if err != nil {
		return academics.TeacherAssignment{}, errors.Wrap(err, "inserting teacher assignment")
	}
	ta.ID = id
	return ta, nil
}

func (repo *academicsRepository) DeleteTeacherAssignment(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM teacher_assignments WHERE id = $1`, id)
	return checkAffected(res, err, academics.ErrAssignmentNotFound, "deleting teacher assignment")
}

func (repo *academicsRepository) GetTeacherAssignment(ctx context.Context, id int) (academics.TeacherAssignment, error) {
	var row taRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+taColumns+` FROM teacher_assignments WHERE id = $1`, id); err != nil {
		return academics.TeacherAssignment{}, trapNoRowsErr(err, academics.ErrAssignmentNotFound, "selecting teacher assignment")
	}
	return row.assignment(), nil
}

func (repo *academicsRepository) QueryTeacherAssignments(ctx context.Context, filter academics.AssignmentFilter) ([]academics.TeacherAssignment, error) {
	var w where
	if filter.TeacherID != 0 {
		w.add("teacher_id = ?", filter.TeacherID)
	}
	if filter.SubjectID != 0 {
		w.add("subject_id = ?", filter.SubjectID)
	}
	if filter.GroupID != 0 {
		w.add("group_id = ?", filter.GroupID)
	}
	if filter.GroupIDs != nil {
		w.add("group_id = ANY(?)", pq.Array(filter.GroupIDs))
	}
	if filter.LessonType != "" {
		w.add("lesson_type = ?", string(filter.LessonType))
	}
	if filter.AcademicYear != "" {
		w.add("academic_year = ?", filter.AcademicYear)
	}
	if filter.Semester != 0 {
		w.add("semester = ?", filter.Semester)
	}

	var rows []taRow
	q := repo.db.Rebind(`SELECT ` + taColumns + ` FROM teacher_assignments` + w.String() + ` ORDER BY id`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting teacher assignments")
	}
	tas := make([]academics.TeacherAssignment, len(rows))
	for i, r := range rows {
		tas[i] = r.assignment()
	}
	return tas, nil
}

// Schedule

const scheduleColumns = `id, subject_id, group_id, teacher_id, day_of_week, start_time, end_time, lesson_type, room, link, created_at`

func (repo *academicsRepository) CreateScheduleEntry(ctx context.Context, se academics.ScheduleEntry) (academics.ScheduleEntry, error) {
	row := scheduleRow{
		SubjectID:  se.SubjectID,
		GroupID:    se.GroupID,
		TeacherID:  nullInt(se.TeacherID),
		DayOfWeek:  se.DayOfWeek,
		StartTime:  se.StartTime,
		EndTime:    se.EndTime,
		LessonType: string(se.LessonType),
		Room:       se.Room,
		Link:       se.Link,
		CreatedAt:  se.CreatedAt,
	}
	id, err := insert(ctx, repo.db, `INSERT INTO schedule_entries
		(subject_id, group_id, teacher_id, day_of_week, start_time, end_time, lesson_type, room, link, created_at)
		VALUES (:subject_id, :group_id, :teacher_id, :day_of_week, :start_time, :end_time, :lesson_type, :room, :link,
		:created_at) RETURNING id`, row)
	if err != nil {
		return academics.ScheduleEntry{}, errors.Wrap(err, "inserting schedule entry")
	}
	se.ID = id
	return se, nil
}

func (repo *academicsRepository) DeleteScheduleEntry(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM schedule_entries WHERE id = $1`, id)
	return checkAffected(res, err, academics.ErrScheduleNotFound, "deleting schedule entry")
}

func (repo *academicsRepository) GetScheduleEntry(ctx context.Context, id int) (academics.ScheduleEntry, error) {
	var row scheduleRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+scheduleColumns+` FROM schedule_entries WHERE id = $1`, id); err != nil {
		return academics.ScheduleEntry{}, trapNoRowsErr(err, academics.ErrScheduleNotFound, "selecting schedule entry")
	}
	return row.entry(), nil
}

func (repo *academicsRepository) QuerySchedule(ctx context.Context, filter academics.ScheduleFilter) ([]academics.ScheduleEntry, error) {
	var w where
	if filter.GroupIDs != nil {
		w.add("group_id = ANY(?)", pq.Array(filter.GroupIDs))
	}
	if filter.TeacherID != 0 {
		w.add("teacher_id = ?", filter.TeacherID)
	}

	var rows []scheduleRow
	q := repo.db.Rebind(`SELECT ` + scheduleColumns + ` FROM schedule_entries` + w.String() +
		` ORDER BY day_of_week, start_time, id`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting schedule")
	}
	entries := make([]academics.ScheduleEntry, len(rows))
	for i, r := range rows {
		entries[i] = r.entry()
	}
	return entries, nil
}
