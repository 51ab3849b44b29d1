package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/coursework"
	"github.com/trezcool/campus/core/user"
)

func (s *server) registerCourseworkAPI(g *echo.Group) {
	staff := rolesMiddleware(user.RoleAdmin, user.RoleDean, user.RoleTeacher)
	student := rolesMiddleware(user.RoleStudent)

	g.POST("/subjects/:id/assignments", s.createAssignment, staff)
	g.GET("/assignments/:id", s.retrieveAssignment)
	g.POST("/assignments/:id/submit", s.submitAssignment, student)
	g.POST("/submissions/:id/grade", s.gradeSubmission, staff)

	g.GET("/grades", s.gradeBook, student)
	g.GET("/subjects/:id/grades", s.subjectGrades, student)
	g.GET("/subjects/:id/groups/:group_id/grades", s.groupGrades, staff)
}

func (s *server) createAssignment(ctx echo.Context) error {
	subjectID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data coursework.AssignmentForm
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignmentForm")
	}
	a, err := s.CourseworkSvc.CreateAssignment(ctx.Request().Context(), contextUser(ctx), subjectID, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (s *server) retrieveAssignment(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	detail, err := s.CourseworkSvc.AssignmentDetail(ctx.Request().Context(), contextUser(ctx), id)
	if err != nil {
		return errors.Wrap(err, "finding assignment")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (s *server) submitAssignment(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data coursework.SubmissionForm
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmissionForm")
	}
	file, closeFn, err := formUpload(ctx, "file")
	if err != nil {
		return err
	}
	defer closeFn()
	data.File = file

	sub, err := s.CourseworkSvc.Submit(ctx.Request().Context(), contextUser(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (s *server) gradeSubmission(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data coursework.GradeForm
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeForm")
	}
	sub, err := s.CourseworkSvc.Grade(ctx.Request().Context(), contextUser(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

// gradeBook lists the acting student's grades in every subject of their group.
func (s *server) gradeBook(ctx echo.Context) error {
	book, err := s.CourseworkSvc.GradeBook(ctx.Request().Context(), contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "building grade book")
	}
	return ctx.JSON(http.StatusOK, book)
}

func (s *server) subjectGrades(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	grades, err := s.CourseworkSvc.SubjectGrades(ctx.Request().Context(), contextUser(ctx), id)
	if err != nil {
		return errors.Wrap(err, "computing subject grades")
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (s *server) groupGrades(ctx echo.Context) error {
	subjectID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	groupID, err := idParam(ctx, "group_id")
	if err != nil {
		return err
	}
	sheet, err := s.CourseworkSvc.GroupGrades(ctx.Request().Context(), contextUser(ctx), subjectID, groupID)
	if err != nil {
		return errors.Wrap(err, "computing group grades")
	}
	return ctx.JSON(http.StatusOK, sheet)
}
