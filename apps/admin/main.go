package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/refdata"
	"github.com/hien-pd-dac/tutorfinder/core/user"
	emailsvc "github.com/hien-pd-dac/tutorfinder/services/email"
	logsvc "github.com/hien-pd-dac/tutorfinder/services/logger"
	mediasvc "github.com/hien-pd-dac/tutorfinder/services/media"
	"github.com/hien-pd-dac/tutorfinder/storage/database"
	sqlxrepos "github.com/hien-pd-dac/tutorfinder/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger, err := logsvc.NewRollbarLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err = database.CreateIfNotExist(ctx, conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()
	if err = database.Ping(ctx, db); err != nil {
		logger.Fatal("pinging database", err)
	}

	media, err := mediasvc.NewStorage(conf)
	if err != nil {
		logger.Fatal("setting up media storage", err)
	}
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	usrRepo := sqlxrepos.NewUserRepository(db)
	refSvc := refdata.NewService(sqlxrepos.NewRefdataRepository(db), validate)

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo, refSvc, emailsvc.NewConsoleService(conf, logger), media, validate, conf),
		refSvc:  refSvc,
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}
