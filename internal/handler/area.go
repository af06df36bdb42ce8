package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/service"
)

// AreaHandler exposes area management and the public pincode lookup.
type AreaHandler struct {
	Areas *service.AreaService
}

func NewAreaHandler(areas *service.AreaService) *AreaHandler {
	return &AreaHandler{Areas: areas}
}

type createAreaReq struct {
	Name    string `json:"name" validate:"required"`
	City    string `json:"city" validate:"required,mongodb"`
	Pincode int    `json:"pincode" validate:"required,min=100000,max=999999"`
}

type updateAreaReq struct {
	Name    *string `json:"name" validate:"omitempty,min=1"`
	City    *string `json:"city" validate:"omitempty,mongodb"`
	Pincode *int    `json:"pincode" validate:"omitempty,min=100000,max=999999"`
}

func (h *AreaHandler) Create(c echo.Context) error {
	var req createAreaReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	area, err := h.Areas.Create(ctx, model.Area{Name: req.Name, City: *oid(req.City), Pincode: req.Pincode})
	if err != nil {
		return err
	}
	return ok(c, area)
}

func (h *AreaHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id", "Invalid area id.")
	if err != nil {
		return err
	}
	var req updateAreaReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	patch := model.AreaPatch{Name: req.Name, City: oidPtr(req.City), Pincode: req.Pincode}
	if err := h.Areas.Update(ctx, id, patch); err != nil {
		return err
	}
	return okMessage(c, "Area Updated", struct{}{})
}

func (h *AreaHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id", "Invalid area id.")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Areas.Delete(ctx, id); err != nil {
		return err
	}
	return ok(c, "Area deleted!")
}

func (h *AreaHandler) View(c echo.Context) error {
	id, err := pathID(c, "id", "Invalid area id.")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	area, err := h.Areas.View(ctx, id)
	if err != nil {
		return err
	}
	return ok(c, area)
}

// ByPincode resolves :pincode to its city.  Public.
func (h *AreaHandler) ByPincode(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	city, err := h.Areas.CityByPincode(ctx, c.Param("pincode"))
	if err != nil {
		return err
	}
	return ok(c, city)
}
