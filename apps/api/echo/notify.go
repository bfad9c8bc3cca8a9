package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core/notify"
)

type UnreadResponse struct {
	Unread int `json:"unread"`
}

type notifyApi struct {
	svc notify.ServiceInterface
}

func registerNotifyAPI(e *echo.Echo, deps Deps, authed echo.MiddlewareFunc) {
	api := notifyApi{svc: deps.NotifySvc}

	ng := e.Group("/notifications", authed)
	ng.GET("", api.feed)
	ng.GET("/unread", api.unread)
	ng.POST("/seen", api.seen)
}

// Handlers

func (api *notifyApi) feed(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	feed, err := api.svc.Feed(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting notifications")
	}
	return ctx.JSON(http.StatusOK, feed)
}

func (api *notifyApi) unread(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.UnreadCount(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, UnreadResponse{Unread: n})
}

func (api *notifyApi) seen(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.MarkAllSeen(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "marking notifications seen")
	}
	return ctx.JSON(http.StatusOK, UnreadResponse{Unread: 0})
}
