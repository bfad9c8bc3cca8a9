package main

import (
	"context"
	"expvar"
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"
	"go.uber.org/dig"

	dig_container "github.com/hien-pd-dac/tutorfinder/apps/api/di/dig"
	echoapi "github.com/hien-pd-dac/tutorfinder/apps/api/echo"
	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/user"
	appfs "github.com/hien-pd-dac/tutorfinder/fs"
)

func main() {
	graph := flag.Bool("graph", false, "print the dependency graph (DOT) and exit")
	flag.Parse()

	c := dig_container.New()
	if *graph {
		must(dig.Visualize(c, os.Stdout))
		return
	}

	must(c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		db *sqlx.DB,
		validate *validator.Validate,
		translator ut.Translator,
		usrSvc user.ServiceInterface,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
		if s, ok := logger.(interface{ Sync() }); ok {
			defer s.Sync()
		}

		core.InitValidators(validate, translator)
		user.InitValidators(validate, translator)

		core.ParseEmailTemplates(appfs.FS, conf, logger)

		user.LoadCommonPasswords(appfs.FS, logger)

		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close database", err)
			}
		}()
		defer logger.Info("Application stopped")

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start Jobs

		jobs, err := startJobs(conf, logger, usrSvc)
		if err != nil {
			logger.Fatal(fmt.Sprintf("scheduling jobs: %v", err), err)
		}
		defer func() { <-jobs.Stop().Done() }()

		// =========================================================================
		// Start API Service

		go func() {
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			logger.Fatal(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}
	}))
}

// startJobs schedules the periodic maintenance jobs. An empty schedule disables a job.
func startJobs(conf *core.Config, logger core.Logger, usrSvc user.ServiceInterface) (*cron.Cron, error) {
	c := cron.New()
	if conf.PurgeInactiveSchedule != "" {
		_, err := c.AddFunc(conf.PurgeInactiveSchedule, func() {
			n, err := usrSvc.PurgeInactive(context.Background())
			if err != nil {
				logger.Error("purging inactive users", err)
				return
			}
			logger.Info(fmt.Sprintf("purged %d inactive users", n))
		})
		if err != nil {
			return nil, err
		}
	}
	c.Start()
	return c, nil
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
