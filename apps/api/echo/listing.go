package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core/listing"
	"github.com/hien-pd-dac/tutorfinder/core/search"
	"github.com/hien-pd-dac/tutorfinder/core/user"
)

type PendingCountResponse struct {
	NumApprove int `json:"num_approve"`
}

type listingApi struct {
	svc       listing.ServiceInterface
	searchSvc search.ServiceInterface
}

func registerListingAPI(e *echo.Echo, deps Deps, authed, optional echo.MiddlewareFunc) {
	api := listingApi{svc: deps.ListingSvc, searchSvc: deps.SearchSvc}

	e.GET("/", api.home, optional)
	e.GET("/search", api.search, optional)

	pg := e.Group("/post")
	pg.POST("", api.create, authed)

	// admin endpoints; registered before /:id so they take precedence
	pg.GET("/pending", api.pending, authed, adminMiddleware)
	pg.GET("/pending/count", api.pendingCount, authed, adminMiddleware)
	pg.POST("/:id/approve", api.approve, authed, adminMiddleware)

	// detail endpoints
	pg.GET("/:id", api.detail, optional)
	pg.POST("/:id/edit", api.edit, authed)
	pg.DELETE("/:id", api.destroy, authed)
	pg.POST("/:id/like", api.like, authed)
	pg.POST("/:id/comment", api.comment, authed)
	pg.POST("/:id/comment/:cid/edit", api.editComment, authed)
	pg.DELETE("/:id/comment/:cid", api.destroyComment, authed)
}

// Handlers

func (api *listingApi) home(ctx echo.Context) error {
	feed, err := api.svc.Feed(
		ctx.Request().Context(), getViewer(ctx), user.ParseAudience(ctx.QueryParam("filter")), ctx.QueryParam("page"),
	)
	if err != nil {
		return errors.Wrap(err, "getting feed")
	}
	return ctx.JSON(http.StatusOK, feed)
}

func (api *listingApi) search(ctx echo.Context) error {
	criteria := search.Criteria{
		DistrictID:   ctx.QueryParam("district"),
		SubjectID:    ctx.QueryParam("subject"),
		ClassLevelID: ctx.QueryParam("class_level"),
		Filter:       ctx.QueryParam("filter"),
	}
	res, err := api.searchSvc.Search(ctx.Request().Context(), getViewer(ctx), criteria, ctx.QueryParam("page"))
	if err != nil {
		return errors.Wrap(err, "searching posts")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *listingApi) create(ctx echo.Context) error {
	author, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data listing.NewPost
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}

	p, err := api.svc.Create(ctx.Request().Context(), author, data)
	if err != nil {
		return errors.Wrap(err, "creating post")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *listingApi) detail(ctx echo.Context) error {
	d, err := api.svc.Detail(ctx.Request().Context(), getViewer(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting post detail")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *listingApi) edit(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data listing.UpdatePost
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePost")
	}

	p, err := api.svc.Edit(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "editing post")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *listingApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting post")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *listingApi) like(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.ToggleLike(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "toggling like")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *listingApi) comment(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data listing.CommentText
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CommentText")
	}

	c, err := api.svc.AddComment(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding comment")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *listingApi) editComment(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data listing.CommentText
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CommentText")
	}

	c, err := api.svc.EditComment(ctx.Request().Context(), actor, ctx.Param("id"), ctx.Param("cid"), data)
	if err != nil {
		return errors.Wrap(err, "editing comment")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *listingApi) destroyComment(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteComment(ctx.Request().Context(), actor, ctx.Param("id"), ctx.Param("cid")); err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *listingApi) pending(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	feed, err := api.svc.Pending(
		ctx.Request().Context(), actor, user.ParseAudience(ctx.QueryParam("filter")), ctx.QueryParam("page"),
	)
	if err != nil {
		return errors.Wrap(err, "listing pending posts")
	}
	return ctx.JSON(http.StatusOK, feed)
}

func (api *listingApi) pendingCount(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.PendingCount(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "counting pending posts")
	}
	return ctx.JSON(http.StatusOK, PendingCountResponse{NumApprove: n})
}

func (api *listingApi) approve(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.Approve(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "approving post")
	}
	return ctx.JSON(http.StatusOK, p)
}
