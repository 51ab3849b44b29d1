package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/trezcool/campus/core"
	logsvc "github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/storage/database"
	sqlxrepos "github.com/trezcool/campus/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		panic(err)
	}
	logger := zl.Named("admin")
	defer func() { _ = logger.Sync() }()

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", zap.Error(err))
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", zap.Error(err))
	}

	// start CLI
	cli := commandLine{
		db:      db.DB,
		usrRepo: sqlxrepos.NewUserRepository(db),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", zap.Error(err))
		}
		os.Exit(1)
	}
}
