package main

import (
	"github.com/trezcool/campus/storage/database"
)

var runMigrationsFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	return runMigrationsFunc(cli.db, args[0], args[1:]...)
}
