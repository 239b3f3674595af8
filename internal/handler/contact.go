package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contacts-api/internal/middleware"
	"github.com/iliyamo/contacts-api/internal/model"
	"github.com/iliyamo/contacts-api/internal/service"
)

// ContactHandler serves /contacts. Every route runs behind JWTAuth.
type ContactHandler struct {
	Contacts *service.ContactService
}

func NewContactHandler(s *service.ContactService) *ContactHandler {
	return &ContactHandler{Contacts: s}
}

type contactReq struct {
	FirstName string     `json:"first_name" validate:"required,max=40"`
	LastName  string     `json:"last_name" validate:"required,max=40"`
	Email     string     `json:"email" validate:"required,email"`
	Phone     string     `json:"phone" validate:"required,max=20"`
	Birthday  model.Date `json:"birthday" validate:"required"`
	Data      string     `json:"data" validate:"max=250"`
}

func (r contactReq) input() model.ContactInput {
	return model.ContactInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Birthday:  r.Birthday,
		Data:      r.Data,
	}
}

type dataReq struct {
	Data string `json:"data" validate:"max=250"`
}

type pageQuery struct {
	Skip  int `query:"skip"`
	Limit int `query:"limit"`
}

type searchQuery struct {
	FirstName string     `query:"first_name"`
	LastName  string     `query:"last_name"`
	Email     string     `query:"email"`
	Phone     string     `query:"phone"`
	Birthday  model.Date `query:"birthday"`
}

func contactID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnprocessableEntity, "contact id must be a positive integer")
	}
	return id, nil
}

func page(c echo.Context) (service.Page, error) {
	var q pageQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return service.Page{}, echo.NewHTTPError(http.StatusUnprocessableEntity, "skip and limit must be integers")
	}
	return service.Page{Skip: q.Skip, Limit: q.Limit}, nil
}

func (h *ContactHandler) List(c echo.Context) error {
	p, err := page(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Contacts.List(ctx, middleware.CurrentUser(c), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ContactHandler) Get(c echo.Context) error {
	id, err := contactID(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Contacts.Get(ctx, middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ContactHandler) Create(c echo.Context) error {
	var req contactReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Contacts.Create(ctx, middleware.CurrentUser(c), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

// Update replaces every field of the contact.
func (h *ContactHandler) Update(c echo.Context) error {
	id, err := contactID(c)
	if err != nil {
		return err
	}
	var req contactReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Contacts.Update(ctx, middleware.CurrentUser(c), id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateData patches only the free-text data field.
func (h *ContactHandler) UpdateData(c echo.Context) error {
	id, err := contactID(c)
	if err != nil {
		return err
	}
	var req dataReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Contacts.UpdateData(ctx, middleware.CurrentUser(c), id, req.Data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Delete removes the contact and echoes it back.
func (h *ContactHandler) Delete(c echo.Context) error {
	id, err := contactID(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Contacts.Remove(ctx, middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ContactHandler) Birthdays(c echo.Context) error {
	p, err := page(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Contacts.Birthdays(ctx, middleware.CurrentUser(c), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ContactHandler) Search(c echo.Context) error {
	var q searchQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "birthday must be YYYY-MM-DD")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Contacts.Search(ctx, middleware.CurrentUser(c), model.ContactSearch{
		FirstName: q.FirstName,
		LastName:  q.LastName,
		Email:     q.Email,
		Phone:     q.Phone,
		Birthday:  q.Birthday,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
