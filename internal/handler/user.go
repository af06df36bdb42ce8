package handler

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/service"
)

// UserHandler exposes account registration and management.
type UserHandler struct {
	Accounts *service.AccountService
}

func NewUserHandler(accounts *service.AccountService) *UserHandler {
	return &UserHandler{Accounts: accounts}
}

// ----- DTOs -----

type registerReq struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Number    int64  `json:"number" validate:"required,min=1000000000,max=9999999999"`
	Password  string `json:"password" validate:"max=72"`
}

type nameReq struct {
	First string `json:"fName" validate:"required"`
	Last  string `json:"lName" validate:"required"`
}

type addressReq struct {
	Line1   string `json:"l1"`
	Line2   string `json:"l2"`
	City    string `json:"city" validate:"omitempty,mongodb"`
	Pincode int    `json:"pincode" validate:"omitempty,min=100000,max=999999"`
}

func (a addressReq) toModel() model.Address {
	return model.Address{Line1: a.Line1, Line2: a.Line2, City: oid(a.City), Pincode: a.Pincode}
}

type createUserReq struct {
	Company            string              `json:"company" validate:"omitempty,mongodb"`
	Branches           []string            `json:"branches" validate:"omitempty,dive,mongodb"`
	Fleets             []string            `json:"fleets" validate:"omitempty,dive,mongodb"`
	Departments        []string            `json:"departments" validate:"omitempty,dive,mongodb"`
	AppDepartments     []string            `json:"appDepartments" validate:"omitempty,dive,mongodb"`
	UserTypeID         string              `json:"userTypeId" validate:"omitempty,mongodb"`
	Name               nameReq             `json:"name"`
	Role               string              `json:"role" validate:"omitempty,oneof=S A O"`
	DOB                *time.Time          `json:"dob"`
	Address            addressReq          `json:"address"`
	Active             *bool               `json:"active"`
	Contact            int64               `json:"contact" validate:"required,min=1000000000,max=9999999999"`
	Password           string              `json:"password" validate:"max=72"`
	Email              string              `json:"email" validate:"omitempty,email"`
	ReportingManager   string              `json:"reportingManager" validate:"omitempty,mongodb"`
	Designation        string              `json:"designation"`
	ShiftDuty          *model.ShiftDuty    `json:"userShiftDuty"`
	MaxBalance         float64             `json:"maxBalance" validate:"gte=0"`
	AcceptsPaymentType []model.PaymentType `json:"acceptsPaymentType" validate:"omitempty,dive,oneof=NEFT RTGS UPI CHEQUE CASH"`
}

func (r createUserReq) toModel() model.Account {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return model.Account{
		Company:            oid(r.Company),
		Branches:           oids(r.Branches),
		Fleets:             oids(r.Fleets),
		Departments:        oids(r.Departments),
		AppDepartments:     oids(r.AppDepartments),
		UserTypeID:         oid(r.UserTypeID),
		Name:               model.Name{First: strings.TrimSpace(r.Name.First), Last: strings.TrimSpace(r.Name.Last)},
		Role:               model.Role(r.Role),
		DOB:                r.DOB,
		Address:            r.Address.toModel(),
		Active:             active,
		Contact:            r.Contact,
		Email:              strings.TrimSpace(r.Email),
		ReportingManager:   oid(r.ReportingManager),
		Designation:        r.Designation,
		ShiftDuty:          r.ShiftDuty,
		MaxBalance:         r.MaxBalance,
		AcceptsPaymentType: r.AcceptsPaymentType,
	}
}

type updateUserReq struct {
	Company            *string             `json:"company" validate:"omitempty,mongodb"`
	UserTypeID         *string             `json:"userTypeId" validate:"omitempty,mongodb"`
	ReportingManager   *string             `json:"reportingManager" validate:"omitempty,mongodb"`
	Name               *nameReq            `json:"name"`
	DOB                *time.Time          `json:"dob"`
	Address            *addressReq         `json:"address"`
	Active             *bool               `json:"active"`
	Email              *string             `json:"email" validate:"omitempty,email"`
	Designation        *string             `json:"designation"`
	ShiftDuty          *model.ShiftDuty    `json:"userShiftDuty"`
	MaxBalance         *float64            `json:"maxBalance" validate:"omitempty,gte=0"`
	AcceptsPaymentType []model.PaymentType `json:"acceptsPaymentType" validate:"omitempty,dive,oneof=NEFT RTGS UPI CHEQUE CASH"`
}

func (r updateUserReq) toPatch() model.AccountPatch {
	p := model.AccountPatch{
		Company:            oidPtr(r.Company),
		UserTypeID:         oidPtr(r.UserTypeID),
		ReportingManager:   oidPtr(r.ReportingManager),
		DOB:                r.DOB,
		Active:             r.Active,
		Email:              r.Email,
		Designation:        r.Designation,
		ShiftDuty:          r.ShiftDuty,
		MaxBalance:         r.MaxBalance,
		AcceptsPaymentType: r.AcceptsPaymentType,
	}
	if r.Name != nil {
		p.Name = &model.Name{First: strings.TrimSpace(r.Name.First), Last: strings.TrimSpace(r.Name.Last)}
	}
	if r.Address != nil {
		a := r.Address.toModel()
		p.Address = &a
	}
	return p
}

type deleteUserReq struct {
	UserID string `json:"userId" validate:"required,mongodb"`
}

type listUsersReq struct {
	Branch string  `json:"branch" validate:"omitempty,mongodb"`
	Status *string `json:"status"`
}

type verifyProviderReq struct {
	TokenID string `json:"tokenId" validate:"required"`
}

// Register: self-service sign up.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	acc, err := h.Accounts.Register(ctx, service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Contact:   req.Number,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}
	return ok(c, acc)
}

// Create: administrator creates an account, optionally with documents.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	files, err := bindWithFiles(c, &req)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	acc, err := h.Accounts.Create(ctx, service.CreateInput{
		Account:  req.toModel(),
		Password: req.Password,
		Files:    files,
	})
	if err != nil {
		return err
	}
	return ok(c, acc)
}

// Update: partial profile update of the account named by :userId.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c, "userId", "Invalid user id.")
	if err != nil {
		return err
	}
	var req updateUserReq
	files, err := bindWithFiles(c, &req)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Accounts.Update(ctx, id, req.toPatch(), files); err != nil {
		return err
	}
	return okMessage(c, "User Updated", struct{}{})
}

// Delete deactivates the account; the record is kept.
func (h *UserHandler) Delete(c echo.Context) error {
	var req deleteUserReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Accounts.Deactivate(ctx, *oid(req.UserID)); err != nil {
		return err
	}
	return ok(c, "User deleted!")
}

func (h *UserHandler) List(c echo.Context) error {
	var req listUsersReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	out, err := h.Accounts.List(ctx, service.ListInput{Status: req.Status, Branch: oid(req.Branch)})
	if err != nil {
		return err
	}
	return ok(c, out)
}

// VerifyProvider signs in with a Google ID token.
func (h *UserHandler) VerifyProvider(c echo.Context) error {
	var req verifyProviderReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	acc, err := h.Accounts.VerifyWithProvider(ctx, req.TokenID)
	if err != nil {
		return err
	}
	return okMessage(c, "User Verified", acc)
}
