package echoapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/coursework"
	"github.com/trezcool/campus/core/lesson"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/services/spreadsheet"
)

func (s *server) registerAcademicsAPI(g *echo.Group) {
	admin := rolesMiddleware(user.RoleAdmin)
	staff := rolesMiddleware(user.RoleAdmin, user.RoleDean)
	dean := rolesMiddleware(user.RoleDean)

	fg := g.Group("/faculties")
	fg.GET("", s.queryFaculties)
	fg.POST("", s.createFaculty, admin)
	fg.PUT("/:id", s.updateFaculty, admin)
	fg.DELETE("/:id", s.destroyFaculty, admin)

	sg := g.Group("/subjects")
	sg.GET("", s.querySubjects)
	sg.POST("", s.createSubject, admin)
	sg.GET("/:id", s.retrieveSubject)
	sg.PUT("/:id", s.updateSubject, admin)
	sg.DELETE("/:id", s.destroySubject, admin)

	gg := g.Group("/groups")
	gg.GET("", s.queryGroups)
	gg.POST("", s.createGroup, staff)
	gg.PUT("/:id", s.updateGroup, staff)
	gg.DELETE("/:id", s.destroyGroup, staff)

	tg := g.Group("/teacher-assignments")
	tg.GET("", s.queryTeacherAssignments)
	tg.POST("", s.createTeacherAssignment, staff)
	tg.DELETE("/:id", s.destroyTeacherAssignment, staff)

	scg := g.Group("/schedule")
	scg.GET("", s.querySchedule)
	scg.POST("", s.createScheduleEntry, staff)
	scg.GET("/export", s.exportSchedule)
	scg.DELETE("/:id", s.destroyScheduleEntry, staff)

	dg := g.Group("/dean/students", dean)
	dg.GET("", s.queryFacultyStudents)
	dg.POST("", s.createFacultyStudent)
	dg.POST("/import", s.importFacultyStudents)
	dg.GET("/import/sample", s.studentImportSample)
	dg.GET("/export", s.exportFacultyStudents)
}

// Faculties

func (s *server) queryFaculties(ctx echo.Context) error {
	faculties, err := s.AcademicsSvc.Faculties(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying faculties")
	}
	return ctx.JSON(http.StatusOK, faculties)
}

func (s *server) createFaculty(ctx echo.Context) error {
	var data academics.FacultyForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FacultyForm")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}
	f, err := s.AcademicsSvc.CreateFaculty(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating faculty")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (s *server) updateFaculty(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data academics.FacultyForm
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FacultyForm")
	}
	if err = data.Validate(s.Validate); err != nil {
		return err
	}
	f, err := s.AcademicsSvc.UpdateFaculty(ctx.Request().Context(), contextUser(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "updating faculty")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (s *server) destroyFaculty(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = s.AcademicsSvc.DeleteFaculty(ctx.Request().Context(), contextUser(ctx), id); err != nil {
		return errors.Wrap(err, "deleting faculty")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Subjects

func (s *server) querySubjects(ctx echo.Context) error {
	subjects, err := s.AcademicsSvc.SubjectsFor(ctx.Request().Context(), contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

// retrieveSubject returns a subject with its lessons (and their lock states for students) and assignments.
func (s *server) retrieveSubject(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	actor := contextUser(ctx)

	subject, err := s.AcademicsSvc.GetSubject(reqCtx, id)
	if err != nil {
		return errors.Wrap(err, "finding subject")
	}
	lessons, err := s.LessonSvc.SubjectLessons(reqCtx, actor, subject)
	if err != nil {
		return errors.Wrap(err, "listing lessons")
	}
	assignments, err := s.CourseworkSvc.SubjectAssignments(reqCtx, actor, subject)
	if err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	return ctx.JSON(http.StatusOK, SubjectDetail{Subject: subject, Lessons: lessons, Assignments: assignments})
}

func (s *server) createSubject(ctx echo.Context) error {
	var data academics.SubjectForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubjectForm")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}
	subject, err := s.AcademicsSvc.CreateSubject(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subject)
}

func (s *server) updateSubject(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data academics.SubjectForm
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubjectForm")
	}
	if err = data.Validate(s.Validate); err != nil {
		return err
	}
	subject, err := s.AcademicsSvc.UpdateSubject(ctx.Request().Context(), contextUser(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, subject)
}

func (s *server) destroySubject(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = s.AcademicsSvc.DeleteSubject(ctx.Request().Context(), contextUser(ctx), id); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Groups

func (s *server) queryGroups(ctx echo.Context) error {
	groups, err := s.AcademicsSvc.GroupsFor(ctx.Request().Context(), contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (s *server) createGroup(ctx echo.Context) error {
	var data academics.GroupForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GroupForm")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}
	group, err := s.AcademicsSvc.CreateGroup(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, group)
}

func (s *server) updateGroup(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data academics.GroupForm
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GroupForm")
	}
	if err = data.Validate(s.Validate); err != nil {
		return err
	}
	group, err := s.AcademicsSvc.UpdateGroup(ctx.Request().Context(), contextUser(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "updating group")
	}
	return ctx.JSON(http.StatusOK, group)
}

func (s *server) destroyGroup(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = s.AcademicsSvc.DeleteGroup(ctx.Request().Context(), contextUser(ctx), id); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Teacher assignments

func (s *server) queryTeacherAssignments(ctx echo.Context) error {
	filter := academics.AssignmentFilter{
		TeacherID:    queryInt(ctx, "teacher_id"),
		SubjectID:    queryInt(ctx, "subject_id"),
		GroupID:      queryInt(ctx, "group_id"),
		LessonType:   academics.LessonType(ctx.QueryParam("lesson_type")),
		AcademicYear: core.CleanString(ctx.QueryParam("academic_year")),
		Semester:     queryInt(ctx, "semester"),
	}
	tas, err := s.AcademicsSvc.TeacherAssignments(ctx.Request().Context(), contextUser(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying teacher assignments")
	}
	return ctx.JSON(http.StatusOK, tas)
}

func (s *server) createTeacherAssignment(ctx echo.Context) error {
	var data academics.TeacherAssignmentForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TeacherAssignmentForm")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}
	ta, err := s.AcademicsSvc.AssignTeacher(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "assigning teacher")
	}
	return ctx.JSON(http.StatusCreated, ta)
}

func (s *server) destroyTeacherAssignment(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = s.AcademicsSvc.UnassignTeacher(ctx.Request().Context(), contextUser(ctx), id); err != nil {
		return errors.Wrap(err, "unassigning teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Schedule

func (s *server) querySchedule(ctx echo.Context) error {
	entries, err := s.AcademicsSvc.ScheduleFor(ctx.Request().Context(), contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "querying schedule")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (s *server) createScheduleEntry(ctx echo.Context) error {
	var data academics.ScheduleForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScheduleForm")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}
	se, err := s.AcademicsSvc.CreateScheduleEntry(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule entry")
	}
	return ctx.JSON(http.StatusCreated, se)
}

func (s *server) destroyScheduleEntry(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = s.AcademicsSvc.DeleteScheduleEntry(ctx.Request().Context(), contextUser(ctx), id); err != nil {
		return errors.Wrap(err, "deleting schedule entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) exportSchedule(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor := contextUser(ctx)
	entries, err := s.AcademicsSvc.ScheduleFor(reqCtx, actor)
	if err != nil {
		return errors.Wrap(err, "querying schedule")
	}
	names, err := s.scheduleNames(reqCtx, entries)
	if err != nil {
		return err
	}
	return xlsx(ctx, spreadsheet.Filename("schedule", time.Now(), actor.Name), func(w io.Writer) error {
		return spreadsheet.WriteSchedule(w, entries, names)
	})
}

// scheduleNames resolves the subjects, groups and teachers referenced by entries.
// References that vanished in the meantime are left blank.
func (s *server) scheduleNames(ctx context.Context, entries []academics.ScheduleEntry) (spreadsheet.Names, error) {
	names := spreadsheet.Names{Groups: map[int]string{}, Subjects: map[int]string{}, Users: map[int]string{}}
	for _, se := range entries {
		if _, ok := names.Subjects[se.SubjectID]; !ok {
			subject, err := s.AcademicsSvc.GetSubject(ctx, se.SubjectID)
			if err != nil && !core.IsNotFound(err) {
				return names, errors.Wrap(err, "finding subject")
			}
			names.Subjects[se.SubjectID] = subject.Name
		}
		if _, ok := names.Groups[se.GroupID]; !ok {
			group, err := s.AcademicsSvc.GetGroup(ctx, se.GroupID)
			if err != nil && !core.IsNotFound(err) {
				return names, errors.Wrap(err, "finding group")
			}
			names.Groups[se.GroupID] = group.Name
		}
		if _, ok := names.Users[se.TeacherID]; !ok && se.TeacherID != 0 {
			teacher, err := s.UserSvc.GetByID(ctx, se.TeacherID)
			if err != nil && !core.IsNotFound(err) {
				return names, errors.Wrap(err, "finding teacher")
			}
			names.Users[se.TeacherID] = teacher.Name
		}
	}
	return names, nil
}

func groupNames(groups []academics.Group) map[int]string {
	names := make(map[int]string, len(groups))
	for _, g := range groups {
		names[g.ID] = g.Name
	}
	return names
}

// Dean students

// facultyStudents lists the students of the dean's faculty, with the faculty's groups.
func (s *server) facultyStudents(ctx context.Context, dean user.User, search string) ([]user.User, []academics.Group, error) {
	if dean.FacultyID == 0 {
		return nil, nil, core.NewPermissionError("no faculty is attached to your account")
	}
	groups, err := s.AcademicsSvc.QueryGroups(ctx, academics.GroupFilter{FacultyID: dean.FacultyID})
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying groups")
	}
	ids := make([]int, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	students, err := s.UserSvc.Students(ctx, ids, core.CleanString(search))
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying students")
	}
	return students, groups, nil
}

func (s *server) queryFacultyStudents(ctx echo.Context) error {
	students, _, err := s.facultyStudents(ctx.Request().Context(), contextUser(ctx), ctx.QueryParam("search"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (s *server) createFacultyStudent(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	data.Role = user.RoleStudent
	data.FacultyID = 0
	if err := data.Validate(s.Validate); err != nil {
		return err
	}
	usr, err := s.UserSvc.Create(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (s *server) importFacultyStudents(ctx echo.Context) error {
	actor := contextUser(ctx)
	if actor.FacultyID == 0 {
		return core.NewPermissionError("no faculty is attached to your account")
	}
	up, closeFn, err := s.spreadsheetUpload(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	rows, problems, err := spreadsheet.ReadStudents(up.Content)
	if err != nil {
		return err
	}
	res, err := s.UserSvc.ImportStudents(ctx.Request().Context(), actor.FacultyID, rows)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	return ctx.JSON(http.StatusOK, mergeImportProblems(res, problems))
}

func (s *server) studentImportSample(ctx echo.Context) error {
	return xlsx(ctx, "students_import_sample.xlsx", spreadsheet.WriteStudentSample)
}

func (s *server) exportFacultyStudents(ctx echo.Context) error {
	actor := contextUser(ctx)
	students, groups, err := s.facultyStudents(ctx.Request().Context(), actor, ctx.QueryParam("search"))
	if err != nil {
		return err
	}
	names := spreadsheet.Names{Groups: groupNames(groups)}
	return xlsx(ctx, spreadsheet.Filename("students", time.Now()), func(w io.Writer) error {
		return spreadsheet.WriteStudents(w, students, names)
	})
}

// SubjectDetail is a subject page: its lessons in sequence and its assignments.
type SubjectDetail struct {
	Subject     academics.Subject       `json:"subject"`
	Lessons     []lesson.Status         `json:"lessons"`
	Assignments []coursework.Assignment `json:"assignments"`
}
