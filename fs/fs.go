// Package appfs embeds the static files the backend ships with: SQL migrations and email templates.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/*
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
)
