package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/listing"
	"github.com/hien-pd-dac/tutorfinder/core/rating"
	"github.com/hien-pd-dac/tutorfinder/core/user"
)

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	// ProfileResponse is what a viewer sees of another user's profile.
	ProfileResponse struct {
		User   user.User        `json:"user"`
		Rating rating.Summary   `json:"rating"`
		Posts  listing.FeedPage `json:"posts"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username)
	return validate.Struct(lr)
}

type userApi struct {
	conf       *core.Config
	validate   *validator.Validate
	svc        user.ServiceInterface
	ratingSvc  rating.ServiceInterface
	listingSvc listing.ServiceInterface
	sessions   core.SessionStore
}

func registerUserAPI(e *echo.Echo, deps Deps, authed, rateLimit echo.MiddlewareFunc) {
	api := userApi{
		conf:       deps.Conf,
		validate:   deps.Validate,
		svc:        deps.UserSvc,
		ratingSvc:  deps.RatingSvc,
		listingSvc: deps.ListingSvc,
		sessions:   deps.Sessions,
	}

	// un-authed endpoints
	e.POST("/signup", api.signup, rateLimit)
	e.POST("/login", api.login, rateLimit)
	e.GET("/activate/:uid/:token", api.activate)
	e.GET("/user/top-rated", api.topRated)

	// authed endpoints
	e.GET("/logout", api.logout, authed)

	ug := e.Group("/user/:id", authed)
	ug.GET("/profile", api.profile)
	ug.POST("/edit", api.edit)
	ug.POST("/picture", api.picture)
	ug.POST("/vote/:score", api.vote)
}

// Handlers

func (api *userApi) signup(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return respondWithToken(ctx, usr, api.conf)
}

func (api *userApi) activate(ctx echo.Context) error {
	usr, err := api.svc.Activate(ctx.Request().Context(), ctx.Param("uid"), ctx.Param("token"))
	if err != nil {
		return errors.Wrap(err, "activating account")
	}
	return respondWithToken(ctx, usr, api.conf)
}

func (api *userApi) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err = api.sessions.Revoke(ctx.Request().Context(), claims.Id, time.Unix(claims.ExpiresAt, 0)); err != nil {
		return errors.Wrap(err, "revoking session")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

func (api *userApi) profile(ctx echo.Context) error {
	viewer, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	target, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user")
	}
	summary, err := api.ratingSvc.Summary(reqCtx, target, &viewer)
	if err != nil {
		return err
	}
	posts, err := api.listingSvc.ByAuthor(reqCtx, &viewer, target.ID, ctx.QueryParam("page"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ProfileResponse{User: target, Rating: summary, Posts: posts})
}

func (api *userApi) edit(ctx echo.Context) error {
	editor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data user.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}

	usr, err := api.svc.EditProfile(ctx.Request().Context(), editor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "editing profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) picture(ctx echo.Context) error {
	editor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	fh, err := ctx.FormFile("picture")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "picture", Error: "no file was submitted"})
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded picture")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	usr, err := api.svc.SetPicture(ctx.Request().Context(), editor, ctx.Param("id"), fh.Filename, file)
	if err != nil {
		return errors.Wrap(err, "setting picture")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) vote(ctx echo.Context) error {
	rater, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	score, err := strconv.Atoi(ctx.Param("score"))
	if err != nil {
		return rating.ErrInvalidScore
	}
	reqCtx := ctx.Request().Context()

	ratee, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user")
	}
	res, err := api.ratingSvc.Rate(reqCtx, rater, ratee, score)
	if err != nil {
		return errors.Wrap(err, "rating user")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *userApi) topRated(ctx echo.Context) error {
	limit, err := strconv.Atoi(ctx.QueryParam("limit"))
	if err != nil || limit < 1 {
		limit = 10
	}
	tutors, err := api.ratingSvc.TopRated(ctx.Request().Context(), limit)
	if err != nil {
		return errors.Wrap(err, "listing top rated tutors")
	}
	return ctx.JSON(http.StatusOK, tutors)
}
