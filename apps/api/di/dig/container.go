package dig_container

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/hien-pd-dac/tutorfinder/apps/api/echo"
	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/listing"
	"github.com/hien-pd-dac/tutorfinder/core/notify"
	"github.com/hien-pd-dac/tutorfinder/core/rating"
	"github.com/hien-pd-dac/tutorfinder/core/refdata"
	"github.com/hien-pd-dac/tutorfinder/core/search"
	"github.com/hien-pd-dac/tutorfinder/core/user"
	emailsvc "github.com/hien-pd-dac/tutorfinder/services/email"
	logsvc "github.com/hien-pd-dac/tutorfinder/services/logger"
	mediasvc "github.com/hien-pd-dac/tutorfinder/services/media"
	sessionsvc "github.com/hien-pd-dac/tutorfinder/services/session"
	"github.com/hien-pd-dac/tutorfinder/storage/database"
	sqlxrepos "github.com/hien-pd-dac/tutorfinder/storage/database/sqlx"
)

const setUpTimeout = 30 * time.Second

func newLogger(conf *core.Config) (core.Logger, error) {
	logger, err := logsvc.NewRollbarLogger(conf)
	if err != nil {
		return nil, err
	}
	logger.Enable(!conf.Debug)
	return logger, nil
}

func newDB(conf *core.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), setUpTimeout)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = database.Ping(ctx, db); err != nil {
		return nil, err
	}
	if err = database.Migrate(db, "up"); err != nil {
		return nil, err
	}
	return db, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newSessionStore uses Redis when it is configured, so that logouts survive restarts and are shared between instances.
func newSessionStore(conf *core.Config, logger core.Logger) (core.SessionStore, error) {
	if conf.RedisURL == "" {
		logger.Info("session store: memory")
		return sessionsvc.NewMemoryStore(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), setUpTimeout)
	defer cancel()

	client, err := sessionsvc.NewRedisClient(ctx, conf.RedisURL)
	if err != nil {
		return nil, err
	}
	logger.Info("session store: redis")
	return sessionsvc.NewRedisStore(client), nil
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	// ambient
	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))

	// storage
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.NewTxRunner))
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewRefdataRepository))
	must(c.Provide(sqlxrepos.NewRatingRepository))
	must(c.Provide(sqlxrepos.NewNotifyRepository))
	must(c.Provide(sqlxrepos.NewListingRepository))

	// infrastructure services
	must(c.Provide(newEmailService))
	must(c.Provide(mediasvc.NewStorage))
	must(c.Provide(newSessionStore))

	// domain services
	must(c.Provide(refdata.NewService, dig.As(new(refdata.ServiceInterface))))
	must(c.Provide(notify.NewService, dig.As(new(notify.ServiceInterface))))
	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(rating.NewService, dig.As(new(rating.ServiceInterface))))
	must(c.Provide(listing.NewService, dig.As(new(listing.ServiceInterface))))
	must(c.Provide(search.NewService, dig.As(new(search.ServiceInterface))))

	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
