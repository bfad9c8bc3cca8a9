package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core/refdata"
	"github.com/hien-pd-dac/tutorfinder/core/user"
)

type refdataApi struct {
	svc    refdata.ServiceInterface
	usrSvc user.ServiceInterface
}

func registerRefdataAPI(e *echo.Echo, deps Deps) {
	api := refdataApi{svc: deps.RefSvc, usrSvc: deps.UserSvc}

	e.GET("/districts", api.list(refdata.KindDistrict))
	e.GET("/schools", api.list(refdata.KindSchool))
	e.GET("/subjects", api.list(refdata.KindSubject))
	e.GET("/class-levels", api.list(refdata.KindClassLevel))
	e.GET("/districts/:id/users", api.districtUsers)
}

// Handlers

func (api *refdataApi) list(kind refdata.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		entries, err := api.svc.List(ctx.Request().Context(), kind)
		if err != nil {
			return errors.Wrapf(err, "listing %s entries", kind)
		}
		if entries == nil {
			entries = []refdata.Entry{}
		}
		return ctx.JSON(http.StatusOK, entries)
	}
}

func (api *refdataApi) districtUsers(ctx echo.Context) error {
	res, err := api.usrSvc.QueryByDistrict(
		ctx.Request().Context(), ctx.Param("id"), user.ParseAudience(ctx.QueryParam("filter")), ctx.QueryParam("page"),
	)
	if err != nil {
		return errors.Wrap(err, "listing district users")
	}
	return ctx.JSON(http.StatusOK, res)
}
