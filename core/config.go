package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName                   string
		Env                       string // DEV (local; default), TEST, QA, PROD
		Build                     string
		Debug                     bool
		TestMode                  bool
		SecretKey                 string
		DefaultFromEmail          string
		FrontendBaseURL           string
		PasswordResetTimeoutDelta time.Duration
		RollbarToken              string
		SendgridAPIKey            string

		Server   ServerConfig
		Database DatabaseConfig
		Uploads  UploadsConfig
		Log      LogConfig
		Grades   GradesConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		DisableRequestLogs        bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	UploadsConfig struct {
		Root              string
		MaxSubmissionSize int64 // bytes
		VideoExts         []string
		LessonFileExts    []string
		SubmissionExts    []string
		SpreadsheetExts   []string
	}

	LogConfig struct {
		Level      string
		FilePath   string // empty: console only
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}

	GradesConfig struct {
		// PracticeTitleMarkers mark an assignment as practice work when no teacher binding decides it.
		PracticeTitleMarkers []string
	}
)

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

// NewConfig loads the app configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the current env, e.g. `PROD_SECRET_KEY`.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("test_mode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:                   v.GetString("app_name"),
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("test_mode"),
		SecretKey:                 v.GetString("secret_key"),
		DefaultFromEmail:          v.GetString("default_from_email"),
		FrontendBaseURL:           v.GetString("frontend_base_url"),
		PasswordResetTimeoutDelta: v.GetDuration("password_reset_timeout_delta"),
		RollbarToken:              v.GetString("rollbar_token"),
		SendgridAPIKey:            v.GetString("sendgrid_api_key"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debug_host"),
			ShutdownTimeout:           v.GetDuration("server.shutdown_timeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwt_expiration_delta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwt_refresh_expiration_delta"),
			DisableRequestLogs:        v.GetBool("server.disable_request_logs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.admin_user"),
			AdminPassword: v.GetString("database.admin_password"),
			DisableTLS:    v.GetBool("database.disable_tls"),
		},
		Uploads: UploadsConfig{
			Root:              v.GetString("uploads.root"),
			MaxSubmissionSize: v.GetInt64("uploads.max_submission_size"),
			VideoExts:         v.GetStringSlice("uploads.video_exts"),
			LessonFileExts:    v.GetStringSlice("uploads.lesson_file_exts"),
			SubmissionExts:    v.GetStringSlice("uploads.submission_exts"),
			SpreadsheetExts:   v.GetStringSlice("uploads.spreadsheet_exts"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			FilePath:   v.GetString("log.file_path"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
		Grades: GradesConfig{
			PracticeTitleMarkers: v.GetStringSlice("grades.practice_title_markers"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "Campus")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("test_mode", false)
	v.SetDefault("secret_key", "k2#v8t!n0q-campus-dev-secret=zr4+w1m$xj7@c9h")
	v.SetDefault("default_from_email", "noreply@localhost")
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("password_reset_timeout_delta", time.Hour)
	v.SetDefault("rollbar_token", "")
	v.SetDefault("sendgrid_api_key", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debug_host", ":4000")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.jwt_expiration_delta", 24*time.Hour)
	v.SetDefault("server.jwt_refresh_expiration_delta", 7*24*time.Hour)
	v.SetDefault("server.disable_request_logs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "campus")
	v.SetDefault("database.user", "campus")
	v.SetDefault("database.password", "campus")
	v.SetDefault("database.admin_user", "postgres")
	v.SetDefault("database.admin_password", "postgres")
	v.SetDefault("database.disable_tls", true)

	v.SetDefault("uploads.root", "uploads")
	v.SetDefault("uploads.max_submission_size", 2*1024*1024)
	v.SetDefault("uploads.video_exts", []string{"mp4", "webm", "ogg"})
	v.SetDefault("uploads.lesson_file_exts", []string{"pdf", "doc", "docx", "ppt", "pptx", "xls", "xlsx", "txt", "zip", "rar"})
	v.SetDefault("uploads.submission_exts", []string{"pdf", "doc", "docx", "txt", "zip", "rar", "png", "jpg", "jpeg", "py", "java", "cpp", "c", "js", "html", "css"})
	v.SetDefault("uploads.spreadsheet_exts", []string{"xlsx", "xls"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("grades.practice_title_markers", []string{"amaliy"})
}

// NewTestConfig returns a Config suited for tests: defaults only, test mode on.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Env = "TEST"
	conf.TestMode = true
	conf.Debug = false
	conf.Server.DisableRequestLogs = true
	return conf
}
