package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	serverConfig struct {
		Host               string
		Address            string
		DebugHost          string
		ReadTimeout        time.Duration
		WriteTimeout       time.Duration
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		DisableReqLogs     bool
		LoginRate          float64 // requests per second per client
		LoginBurst         int
	}

	databaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	paginationConfig struct {
		Posts        int
		ProfilePosts int
		Users        int
	}

	Config struct {
		Env                    string
		Build                  string
		AppName                string
		Debug                  bool
		TestMode               bool
		SecretKey              string
		FrontendBaseURL        string
		SendgridApiKey         string
		RollbarToken           string
		ActivationTimeoutDelta time.Duration
		MediaRoot              string
		MediaBaseURL           string
		CloudinaryURL          string
		RedisURL               string
		PurgeInactiveSchedule  string

		Server     serverConfig
		Database   databaseConfig
		Pagination paginationConfig

		defaultFromEmail string
	}
)

// NewConfig loads the configuration from defaults, `config/.env.<env>` and the environment, in that order.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Tutorfinder")
	v.SetDefault("secretKey", "c@v3x!t-9z3kq0_n4e^l$2w8u1d#f7r%y6o(b)5j+h&m*p=s")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("defaultFromEmail", "Tutorfinder <noreply@localhost>")
	v.SetDefault("activationTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("mediaRoot", "media")
	v.SetDefault("mediaBaseURL", "/media/")
	v.SetDefault("jobs.purgeInactiveSchedule", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 5*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.loginRate", 1.0)
	v.SetDefault("server.loginBurst", 5)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "tutorfinder")
	v.SetDefault("database.user", "tutorfinder")
	v.SetDefault("database.password", "tutorfinder")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("pagination.posts", 4)
	v.SetDefault("pagination.profilePosts", 2)
	v.SetDefault("pagination.users", 6)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
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

	conf := &Config{
		Env:                    env,
		Build:                  v.GetString("build"),
		AppName:                v.GetString("appName"),
		Debug:                  v.GetBool("debug"),
		TestMode:               v.GetBool("testMode"),
		SecretKey:              v.GetString("secretKey"),
		FrontendBaseURL:        v.GetString("frontendBaseURL"),
		SendgridApiKey:         v.GetString("sendgridApiKey"),
		RollbarToken:           v.GetString("rollbarToken"),
		ActivationTimeoutDelta: v.GetDuration("activationTimeoutDelta"),
		MediaRoot:              v.GetString("mediaRoot"),
		MediaBaseURL:           v.GetString("mediaBaseURL"),
		CloudinaryURL:          v.GetString("cloudinaryURL"),
		RedisURL:               v.GetString("redis.url"),
		PurgeInactiveSchedule:  v.GetString("jobs.purgeInactiveSchedule"),
		defaultFromEmail:       v.GetString("defaultFromEmail"),
	}
	conf.Server = serverConfig{
		Host:               v.GetString("server.host"),
		Address:            v.GetString("server.address"),
		DebugHost:          v.GetString("server.debugHost"),
		ReadTimeout:        v.GetDuration("server.readTimeout"),
		WriteTimeout:       v.GetDuration("server.writeTimeout"),
		ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
		JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		DisableReqLogs:     v.GetBool("server.disableReqLogs"),
		LoginRate:          v.GetFloat64("server.loginRate"),
		LoginBurst:         v.GetInt("server.loginBurst"),
	}
	conf.Database = databaseConfig{
		Engine:        v.GetString("database.engine"),
		Host:          v.GetString("database.host"),
		Port:          v.GetInt("database.port"),
		Name:          v.GetString("database.name"),
		User:          v.GetString("database.user"),
		Password:      v.GetString("database.password"),
		AdminUser:     v.GetString("database.adminUser"),
		AdminPassword: v.GetString("database.adminPassword"),
		DisableTLS:    v.GetBool("database.disableTLS"),
	}
	conf.Pagination = paginationConfig{
		Posts:        v.GetInt("pagination.posts"),
		ProfilePosts: v.GetInt("pagination.profilePosts"),
		Users:        v.GetInt("pagination.users"),
	}
	return conf
}

// NewTestConfig returns a Config suitable for tests: no env lookups, no external services.
func NewTestConfig() *Config {
	return &Config{
		Env:                    "TEST",
		Build:                  "test",
		AppName:                "Tutorfinder",
		TestMode:               true,
		SecretKey:              "test-secret-key",
		FrontendBaseURL:        "http://localhost:8080",
		ActivationTimeoutDelta: 3 * 24 * time.Hour,
		MediaRoot:              os.TempDir(),
		MediaBaseURL:           "/media/",
		Server: serverConfig{
			Host:               "localhost",
			JWTExpirationDelta: time.Hour,
			DisableReqLogs:     true,
			LoginRate:          1000,
			LoginBurst:         1000,
		},
		Pagination:       paginationConfig{Posts: 4, ProfilePosts: 2, Users: 6},
		defaultFromEmail: "Tutorfinder <noreply@localhost>",
	}
}

func (conf Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	return *addr
}

func (db databaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", db.Host, db.Port)
}
