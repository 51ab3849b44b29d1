package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/announcement"
	"github.com/trezcool/campus/core/coursework"
	"github.com/trezcool/campus/core/lesson"
	"github.com/trezcool/campus/core/messaging"
	"github.com/trezcool/campus/core/payment"
	"github.com/trezcool/campus/core/report"
	"github.com/trezcool/campus/core/user"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Files      core.FileStorage

		UserSvc         *user.Service
		AcademicsSvc    *academics.Service
		LessonSvc       *lesson.Service
		CourseworkSvc   *coursework.Service
		MessagingSvc    *messaging.Service
		AnnouncementSvc *announcement.Service
		PaymentSvc      *payment.Service
		ReportSvc       *report.Service
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		ServerDeps
		app      *echo.Echo
		tokens   tokenIssuer
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	return newServer(deps)
}

func newServer(deps ServerDeps) *server {
	s := &server{
		ServerDeps: deps,
		app:        echo.New(),
		tokens:     newTokenIssuer(deps.Conf),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Logger.SetLevel(log.ERROR)
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Translator, s.Logger, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableRequestLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.GET("/", home)

	api := s.app.Group("/api")
	authed := api.Group("", middleware.JWTWithConfig(s.tokens.jwtConfig()), s.contextUserMiddleware)

	s.registerAuthAPI(api, authed)
	s.registerUserAPI(authed)
	s.registerAcademicsAPI(authed)
	s.registerLessonAPI(authed)
	s.registerCourseworkAPI(authed)
	s.registerMessagingAPI(authed)
	s.registerAnnouncementAPI(authed)
	s.registerPaymentAPI(authed)
	s.registerReportAPI(authed)
	s.registerFileAPI(authed)
}

func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// signalShutdown asks the main goroutine to stop the server gracefully.
func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Campus API!")
}
