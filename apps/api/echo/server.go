package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/dig"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/listing"
	"github.com/hien-pd-dac/tutorfinder/core/notify"
	"github.com/hien-pd-dac/tutorfinder/core/rating"
	"github.com/hien-pd-dac/tutorfinder/core/refdata"
	"github.com/hien-pd-dac/tutorfinder/core/search"
	"github.com/hien-pd-dac/tutorfinder/core/user"
)

type (
	// Deps holds everything the API needs. It doubles as a dig parameter object.
	Deps struct {
		dig.In

		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Sessions   core.SessionStore
		UserSvc    user.ServiceInterface
		RefSvc     refdata.ServiceInterface
		RatingSvc  rating.ServiceInterface
		NotifySvc  notify.ServiceInterface
		ListingSvc listing.ServiceInterface
		SearchSvc  search.ServiceInterface
	}

	Server struct {
		deps     Deps
		app      *echo.Echo
		jwtConf  middleware.JWTConfig
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps Deps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		jwtConf:  newJWTConfig(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	// uploaded files are served from disk unless they live on Cloudinary
	if conf.CloudinaryURL == "" && conf.MediaRoot != "" {
		s.app.Static(strings.TrimSuffix(conf.MediaBaseURL, "/"), conf.MediaRoot)
	}

	authed := s.authMiddleware(false)
	optional := s.authMiddleware(true)
	limiter := newIPRateLimiter(conf.Server.LoginRate, conf.Server.LoginBurst)

	registerUserAPI(s.app, s.deps, authed, limiter.middleware)
	registerListingAPI(s.app, s.deps, authed, optional)
	registerNotifyAPI(s.app, s.deps, authed)
	registerRefdataAPI(s.app, s.deps)
}

// Start listens on the configured address until the server gets shut down.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// signalShutdown asks the main goroutine to shut the server down.
func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
