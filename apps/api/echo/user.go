package echoapi

import (
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/services/spreadsheet"
)

func (s *server) registerAuthAPI(public, authed *echo.Group) {
	// un-authed endpoints
	// TODO: rate limit `/auth/login` & `/auth/password-reset`
	pg := public.Group("/auth")
	pg.POST("/login", s.login)
	pg.POST("/register", s.register)
	pg.POST("/password-reset", s.resetPassword)
	pg.POST("/password-reset-confirm", s.confirmPasswordReset)

	// authed endpoints
	ag := authed.Group("/auth")
	ag.POST("/token-refresh", s.refreshToken)
	ag.GET("/me", s.me)
}

func (s *server) registerUserAPI(g *echo.Group) {
	admin := rolesMiddleware(user.RoleAdmin)

	ug := g.Group("/users")
	ug.GET("", s.queryUsers, admin)
	ug.POST("", s.createUser, admin)
	ug.DELETE("", s.destroyUsers, admin)
	ug.GET("/roles", s.queryRoles, admin)
	ug.GET("/search", s.searchUsers)
	ug.GET("/export", s.exportStudents, admin)

	// detail endpoints
	ug.GET("/:id", s.retrieveUser, admin)
	ug.PUT("/:id", s.updateUser, admin)
	ug.DELETE("/:id", s.destroyUser, admin)
	ug.POST("/:id/toggle-active", s.toggleUserActive, admin)
}

// Auth handlers

func (s *server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	usr, err := s.UserSvc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrInvalidCredentials:
			return errAuthenticationFailed
		case user.ErrAccountDeactivated:
			return errAccountDeactivated
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := s.tokens.tokenFor(usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (s *server) register(ctx echo.Context) error {
	var data user.Registration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	usr, err := s.UserSvc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (s *server) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	err := s.UserSvc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if err != nil && !core.IsNotFound(err) && !core.IsPermissionDenied(err) {
		// do not return errors to attackers
		s.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (s *server) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	if err := s.UserSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (s *server) refreshToken(ctx echo.Context) error {
	token, err := s.tokens.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: contextUser(ctx)})
}

func (s *server) me(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, contextUser(ctx))
}

// User handlers

func (s *server) queryUsers(ctx echo.Context) error {
	filter := &user.QueryFilter{
		Search:     ctx.QueryParam("search"),
		Roles:      ctx.QueryParams()["role"],
		IsActive:   queryBool(ctx, "is_active"),
		GroupIDs:   queryInts(ctx, "group_id"),
		FacultyIDs: queryInts(ctx, "faculty_id"),
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := s.UserSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (s *server) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	usr, err := s.UserSvc.Create(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (s *server) retrieveUser(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := s.UserSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *server) updateUser(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	orig, err := s.UserSvc.GetByID(reqCtx, id)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(orig, s.Validate); err != nil {
		return err
	}
	// an admin cannot lock themselves out
	if orig.ID == contextUser(ctx).ID && ((data.IsActive != nil && !*data.IsActive) ||
		(data.Role != "" && data.Role != user.RoleAdmin)) {
		return user.ErrSelfAction
	}

	usr, err := s.UserSvc.Update(reqCtx, orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *server) destroyUser(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	if _, err = s.UserSvc.GetByID(reqCtx, id); err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	if err = s.UserSvc.Delete(reqCtx, contextUser(ctx), id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) destroyUsers(ctx echo.Context) error {
	ids := queryInts(ctx, "id")
	if len(ids) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := s.UserSvc.Delete(ctx.Request().Context(), contextUser(ctx), ids...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) toggleUserActive(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := s.UserSvc.ToggleActive(ctx.Request().Context(), contextUser(ctx), id)
	if err != nil {
		return errors.Wrap(err, "toggling user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *server) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

// searchUsers finds the users the actor may message.
func (s *server) searchUsers(ctx echo.Context) error {
	contacts, err := s.MessagingSvc.SearchUsers(ctx.Request().Context(), contextUser(ctx), ctx.QueryParam("q"))
	if err != nil {
		return errors.Wrap(err, "searching users")
	}
	return ctx.JSON(http.StatusOK, contacts)
}

func (s *server) exportStudents(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	students, err := s.UserSvc.Query(reqCtx, &user.QueryFilter{Roles: []string{user.RoleStudent}}, nil)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	groups, err := s.AcademicsSvc.QueryGroups(reqCtx, academics.GroupFilter{})
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	names := spreadsheet.Names{Groups: groupNames(groups)}
	return xlsx(ctx, spreadsheet.Filename("students", time.Now()), func(w io.Writer) error {
		return spreadsheet.WriteStudents(w, students, names)
	})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
