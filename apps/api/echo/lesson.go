package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/lesson"
	"github.com/trezcool/campus/core/user"
)

func (s *server) registerLessonAPI(g *echo.Group) {
	staff := rolesMiddleware(user.RoleAdmin, user.RoleDean, user.RoleTeacher)
	student := rolesMiddleware(user.RoleStudent)

	g.POST("/subjects/:id/lessons", s.createLesson, staff)

	lg := g.Group("/lessons")
	lg.GET("/:id", s.retrieveLesson)
	lg.PUT("/:id", s.updateLesson, staff)
	lg.POST("/:id/watch", s.watchLesson, student)
	lg.POST("/:id/attention-check", s.lessonAttentionCheck, student)
	lg.POST("/:id/watch-time", s.lessonWatchTime, student)
}

// bindLessonForm binds the lesson fields and its optional "video" and "file" uploads.
func bindLessonForm(ctx echo.Context) (lesson.LessonForm, func(), error) {
	var data lesson.LessonForm
	noop := func() {}
	if err := ctx.Bind(&data); err != nil {
		return data, noop, errors.Wrap(err, "binding to LessonForm")
	}

	video, closeVideo, err := formUpload(ctx, "video")
	if err != nil {
		return data, noop, err
	}
	file, closeFile, err := formUpload(ctx, "file")
	if err != nil {
		closeVideo()
		return data, noop, err
	}
	data.Video, data.File = video, file
	return data, func() { closeVideo(); closeFile() }, nil
}

func (s *server) createLesson(ctx echo.Context) error {
	subjectID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	data, closeFn, err := bindLessonForm(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	l, err := s.LessonSvc.Create(ctx.Request().Context(), contextUser(ctx), subjectID, data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (s *server) retrieveLesson(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	status, err := s.LessonSvc.Detail(ctx.Request().Context(), contextUser(ctx), id)
	if err != nil {
		return errors.Wrap(err, "finding lesson")
	}
	return ctx.JSON(http.StatusOK, status)
}

func (s *server) updateLesson(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	data, closeFn, err := bindLessonForm(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	l, err := s.LessonSvc.Update(ctx.Request().Context(), contextUser(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, l)
}

// watchLesson opens a video lesson for the acting student, starting its view.
func (s *server) watchLesson(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	session, err := s.LessonSvc.Open(ctx.Request().Context(), contextUser(ctx), id)
	if err != nil {
		return errors.Wrap(err, "opening lesson")
	}
	return ctx.JSON(http.StatusOK, session)
}

func (s *server) lessonAttentionCheck(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	res, err := s.LessonSvc.AttentionCheck(ctx.Request().Context(), contextUser(ctx), id)
	if err != nil {
		return errors.Wrap(err, "passing attention check")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (s *server) lessonWatchTime(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data WatchTimeRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WatchTimeRequest")
	}
	res, err := s.LessonSvc.UpdateWatchTime(ctx.Request().Context(), contextUser(ctx), id, data.WatchDuration)
	if err != nil {
		return errors.Wrap(err, "updating watch time")
	}
	return ctx.JSON(http.StatusOK, res)
}

type WatchTimeRequest struct {
	WatchDuration int `json:"watch_duration"`
}
