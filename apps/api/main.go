package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	echoapi "github.com/trezcool/campus/apps/api/echo"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/announcement"
	"github.com/trezcool/campus/core/coursework"
	"github.com/trezcool/campus/core/lesson"
	"github.com/trezcool/campus/core/messaging"
	"github.com/trezcool/campus/core/payment"
	"github.com/trezcool/campus/core/report"
	"github.com/trezcool/campus/core/user"
	appfs "github.com/trezcool/campus/fs"
	emailsvc "github.com/trezcool/campus/services/email"
	"github.com/trezcool/campus/services/filestore"
	logsvc "github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/storage/database"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
	boiledrepos "github.com/trezcool/campus/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/campus/storage/database/sqlx"
)

const engineMemory = "memory"

type repositories struct {
	users         user.Repository
	academics     academics.Repository
	lessons       lesson.Repository
	coursework    coursework.Repository
	messages      messaging.Repository
	announcements announcement.Repository
	payments      payment.Repository
	reports       report.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up logger
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		panic(fmt.Sprintf("setting up logger: %v", err))
	}
	defer func() { _ = zl.Sync() }()

	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	// set up storage
	repos, closeDB, err := setUpStorage(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = closeDB(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	files := filestore.New(conf.Uploads.Root, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	academics.InitValidators(validate, translator)
	lesson.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	acadSvc := academics.NewService(repos.academics, nil)
	usrSvc := user.NewService(repos.users, acadSvc, mailSvc, validate, conf, logger)
	acadSvc.SetUserFinder(usrSvc)
	policy := access.NewEvaluator(acadSvc)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("db_engine").Set(conf.Database.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Validate:        validate,
			Translator:      translator,
			Files:           files,
			UserSvc:         usrSvc,
			AcademicsSvc:    acadSvc,
			LessonSvc:       lesson.NewService(repos.lessons, acadSvc, policy, files, validate, conf, logger),
			CourseworkSvc:   coursework.NewService(repos.coursework, acadSvc, usrSvc, policy, files, validate, conf),
			MessagingSvc:    messaging.NewService(repos.messages, policy, usrSvc, validate),
			AnnouncementSvc: announcement.NewService(repos.announcements, validate),
			PaymentSvc:      payment.NewService(repos.payments, usrSvc, acadSvc, validate),
			ReportSvc:       report.NewService(repos.reports, acadSvc),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpStorage opens the configured database engine. The "memory" engine keeps everything in process.
func setUpStorage(conf *core.Config) (repositories, func() error, error) {
	if conf.Database.Engine == engineMemory {
		db := inmemdb.Open()
		return repositories{
			users:         inmemdb.NewUserRepository(db),
			academics:     inmemdb.NewAcademicsRepository(db),
			lessons:       inmemdb.NewLessonRepository(db),
			coursework:    inmemdb.NewCourseworkRepository(db),
			messages:      inmemdb.NewMessageRepository(db),
			announcements: inmemdb.NewAnnouncementRepository(db),
			payments:      inmemdb.NewPaymentRepository(db),
			reports:       inmemdb.NewReportRepository(db),
		}, func() error { return nil }, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return repositories{}, nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return repositories{}, nil, err
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return repositories{}, nil, errors.Wrap(err, "migrating database")
	}
	return repositories{
		users:         sqlxrepos.NewUserRepository(db),
		academics:     sqlxrepos.NewAcademicsRepository(db),
		lessons:       sqlxrepos.NewLessonRepository(db),
		coursework:    sqlxrepos.NewCourseworkRepository(db),
		messages:      sqlxrepos.NewMessageRepository(db),
		announcements: sqlxrepos.NewAnnouncementRepository(db),
		payments:      sqlxrepos.NewPaymentRepository(db),
		reports:       boiledrepos.NewReportRepository(db),
	}, db.Close, nil
}
