package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/listing"
	"github.com/hien-pd-dac/tutorfinder/core/notify"
	"github.com/hien-pd-dac/tutorfinder/core/rating"
	"github.com/hien-pd-dac/tutorfinder/core/refdata"
	"github.com/hien-pd-dac/tutorfinder/core/search"
	"github.com/hien-pd-dac/tutorfinder/core/user"
	appfs "github.com/hien-pd-dac/tutorfinder/fs"
	emailsvc "github.com/hien-pd-dac/tutorfinder/services/email"
	logsvc "github.com/hien-pd-dac/tutorfinder/services/logger"
	mediasvc "github.com/hien-pd-dac/tutorfinder/services/media"
	sessionsvc "github.com/hien-pd-dac/tutorfinder/services/session"
	inmemdb "github.com/hien-pd-dac/tutorfinder/storage/database/inmem"
)

var templatesOnce sync.Once

// Env wires every service on top of the in-memory repositories.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Mail       *emailsvc.ConsoleServiceMock
	Media      core.MediaStorage
	Sessions   core.SessionStore

	DB          *inmemdb.DB
	UsrRepo     user.Repository
	RefRepo     refdata.Repository
	RatingRepo  rating.Repository
	NotifyRepo  notify.Repository
	ListingRepo listing.Repository

	UserSvc    *user.Service
	RefSvc     *refdata.Service
	NotifySvc  *notify.Service
	RatingSvc  *rating.Service
	ListingSvc *listing.Service
	SearchSvc  *search.Service
}

func NewEnv(t *testing.T) *Env {
	conf := core.NewTestConfig()
	conf.MediaRoot = t.TempDir()

	logger, err := logsvc.NewRollbarLogger(conf)
	if err != nil {
		t.Fatalf("NewRollbarLogger() failed: %v", err)
	}
	logger.Enable(false)

	templatesOnce.Do(func() {
		core.ParseEmailTemplates(appfs.FS, conf, logger)
		user.LoadCommonPasswords(appfs.FS, logger)
	})

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	env := &Env{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Mail:       emailsvc.NewConsoleServiceMock(conf, logger),
		Media:      mediasvc.NewLocalStorage(conf),
		Sessions:   sessionsvc.NewMemoryStore(),
		DB:         inmemdb.NewDB(),
	}
	env.UsrRepo = inmemdb.NewUserRepository(env.DB)
	env.RefRepo = inmemdb.NewRefdataRepository(env.DB)
	env.RatingRepo = inmemdb.NewRatingRepository(env.DB)
	env.NotifyRepo = inmemdb.NewNotifyRepository(env.DB)
	env.ListingRepo = inmemdb.NewListingRepository(env.DB)

	env.RefSvc = refdata.NewService(env.RefRepo, validate)
	env.NotifySvc = notify.NewService(env.NotifyRepo)
	env.UserSvc = user.NewService(env.UsrRepo, env.RefSvc, env.Mail, env.Media, validate, conf)
	env.RatingSvc = rating.NewService(env.DB, env.RatingRepo, env.UsrRepo, env.NotifySvc)
	env.ListingSvc = listing.NewService(env.DB, env.ListingRepo, env.RefSvc, env.NotifySvc, validate, conf)
	env.SearchSvc = search.NewService(env.ListingRepo, env.ListingSvc, validate, conf)
	return env
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, email, pwd string,
	role user.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Username:  uname,
		Email:     email,
		Picture:   user.DefaultPicture,
		Role:      role,
		Status:    user.StatusPending,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if isActive {
		usr.Status = user.StatusActive
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateEntry(t *testing.T, repo refdata.Repository, kind refdata.Kind, name string) refdata.Entry {
	e, err := repo.CreateEntry(context.Background(), kind, name)
	if err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}
	return e
}

// CreatePost stores p as is, filling in its id, defaults and timestamps when missing.
func CreatePost(t *testing.T, repo listing.Repository, p listing.Post) listing.Post {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Title == "" {
		p.Title = "post " + p.ID[:8]
	}
	if p.SalaryHour == 0 {
		p.SalaryHour = listing.DefaultSalaryHour
	}
	if p.TimesWeek == 0 {
		p.TimesWeek = listing.DefaultTimesWeek
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt

	p, err := repo.CreatePost(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePost() failed: %v", err)
	}
	return p
}
