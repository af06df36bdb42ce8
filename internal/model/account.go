package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the single-letter role code stored on an account.
type Role string

const (
	RoleSuperAdmin Role = "S"
	RoleAdmin      Role = "A"
	RoleOperator   Role = "O" // default for self-registered accounts
)

// Valid reports whether r belongs to the closed set of role codes.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleOperator:
		return true
	}
	return false
}

// PaymentType enumerates the payment channels an account accepts.
type PaymentType string

const (
	PaymentNEFT   PaymentType = "NEFT"
	PaymentRTGS   PaymentType = "RTGS"
	PaymentUPI    PaymentType = "UPI"
	PaymentCheque PaymentType = "CHEQUE"
	PaymentCash   PaymentType = "CASH"
)

// Valid reports whether p is a known payment type.
func (p PaymentType) Valid() bool {
	switch p {
	case PaymentNEFT, PaymentRTGS, PaymentUPI, PaymentCheque, PaymentCash:
		return true
	}
	return false
}

// Contact numbers are ten digit integers.
const (
	MinContact int64 = 1000000000
	MaxContact int64 = 9999999999
)

// Pincodes are six digit integers.
const (
	MinPincode = 100000
	MaxPincode = 999999
)

// Name holds the first and last name of an account holder.
type Name struct {
	First string `json:"fName" bson:"fName"`
	Last  string `json:"lName" bson:"lName"`
}

// Address is the postal address of an account holder. Every field is
// optional unless the address policy is enabled.
type Address struct {
	Line1   string              `json:"l1,omitempty" bson:"l1,omitempty"`
	Line2   string              `json:"l2,omitempty" bson:"l2,omitempty"`
	City    *primitive.ObjectID `json:"city,omitempty" bson:"city,omitempty"`
	Pincode int                 `json:"pincode,omitempty" bson:"pincode,omitempty"`
}

// ShiftDuty is the daily duty window of an account holder.
type ShiftDuty struct {
	StartTime *time.Time `json:"startTime,omitempty" bson:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty" bson:"endTime,omitempty"`
}

// OTP is a one-time password issued for a password reset together with
// the instant it stops being valid.
type OTP struct {
	Code      string    `json:"-" bson:"otp"`
	ExpiresAt time.Time `json:"-" bson:"expireDate"`
}

// ValidAt reports whether the OTP has not expired at t. An OTP whose
// expiry equals t is still valid.
func (o *OTP) ValidAt(t time.Time) bool {
	return o != nil && o.Code != "" && !o.ExpiresAt.IsZero() && !o.ExpiresAt.Before(t)
}

// Account represents a user account as stored in the `users`
// collection (or table when the relational store is used).
//
// Fields:
//
//	ID                 – primary identity, a 12 byte ObjectID.
//	Company            – owning company reference.
//	Branches, Fleets, Departments, AppDepartments – membership references.
//	UserTypeID         – attendance/leave/salary profile reference.
//	Name               – first and last name.
//	Role               – single-letter role code.
//	Contact            – unique ten digit contact number.
//	PasswordHash       – bcrypt hash; never serialized.
//	OTP                – pending password reset code; never serialized.
//	UserProfile ... Agreement – URLs of uploaded documents.
//	MaxBalance         – maximum wallet balance.
//	AcceptsPaymentType – payment channels used when paying the account.
type Account struct {
	ID                 primitive.ObjectID   `json:"_id" bson:"_id"`
	Company            *primitive.ObjectID  `json:"company,omitempty" bson:"company,omitempty"`
	Branches           []primitive.ObjectID `json:"branches,omitempty" bson:"branches,omitempty"`
	Fleets             []primitive.ObjectID `json:"fleets,omitempty" bson:"fleets,omitempty"`
	Departments        []primitive.ObjectID `json:"departments,omitempty" bson:"departments,omitempty"`
	AppDepartments     []primitive.ObjectID `json:"appDepartments,omitempty" bson:"appDepartments,omitempty"`
	UserTypeID         *primitive.ObjectID  `json:"userTypeId,omitempty" bson:"userTypeId,omitempty"`
	Name               Name                 `json:"name" bson:"name"`
	Role               Role                 `json:"role" bson:"role"`
	DOB                *time.Time           `json:"dob,omitempty" bson:"dob,omitempty"`
	Address            Address              `json:"address" bson:"address"`
	Active             bool                 `json:"active" bson:"active"`
	Contact            int64                `json:"contact" bson:"contact"`
	PasswordHash       string               `json:"-" bson:"password"`
	Email              string               `json:"email,omitempty" bson:"email,omitempty"`
	ReportingManager   *primitive.ObjectID  `json:"reportingManager,omitempty" bson:"reportingManager,omitempty"`
	Designation        string               `json:"designation,omitempty" bson:"designation,omitempty"`
	ShiftDuty          *ShiftDuty           `json:"userShiftDuty,omitempty" bson:"userShiftDuty,omitempty"`
	OTP                *OTP                 `json:"-" bson:"otp,omitempty"`
	UserProfile        string               `json:"userProfile,omitempty" bson:"userProfile,omitempty"`
	PanCard            string               `json:"panCard,omitempty" bson:"panCard,omitempty"`
	AadharCard         string               `json:"aadharCard,omitempty" bson:"aadharCard,omitempty"`
	SalarySlip         string               `json:"salarySlip,omitempty" bson:"salarySlip,omitempty"`
	BankStatement      string               `json:"bankStatement,omitempty" bson:"bankStatement,omitempty"`
	Agreement          string               `json:"agreement,omitempty" bson:"agreement,omitempty"`
	MaxBalance         float64              `json:"maxBalance" bson:"maxBalance"`
	AcceptsPaymentType []PaymentType        `json:"acceptsPaymentType,omitempty" bson:"acceptsPaymentType,omitempty"`
	CreatedAt          time.Time            `json:"createdAt" bson:"createdAt"`
}

// AccountSummary is the projection returned by account listings. Only
// identity, name and contact leave the store.
type AccountSummary struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Name    Name               `json:"name" bson:"name"`
	Contact int64              `json:"contact" bson:"contact"`
}

// Document fields holding uploaded file references.
const (
	DocUserProfile   = "userProfile"
	DocPanCard       = "panCard"
	DocAadharCard    = "aadharCard"
	DocSalarySlip    = "salarySlip"
	DocBankStatement = "bankStatement"
	DocAgreement     = "agreement"
)

// DocumentFields lists every file reference field in a stable order.
var DocumentFields = []string{
	DocUserProfile, DocPanCard, DocAadharCard, DocSalarySlip, DocBankStatement, DocAgreement,
}

// SetDocument stores url in the document field named by field. Unknown
// field names are ignored and reported as false.
func (a *Account) SetDocument(field, url string) bool {
	switch field {
	case DocUserProfile:
		a.UserProfile = url
	case DocPanCard:
		a.PanCard = url
	case DocAadharCard:
		a.AadharCard = url
	case DocSalarySlip:
		a.SalarySlip = url
	case DocBankStatement:
		a.BankStatement = url
	case DocAgreement:
		a.Agreement = url
	default:
		return false
	}
	return true
}

// AccountPatch is a partial update of an account. Nil fields are left
// untouched by the store.
type AccountPatch struct {
	Company            *primitive.ObjectID
	UserTypeID         *primitive.ObjectID
	ReportingManager   *primitive.ObjectID
	Name               *Name
	DOB                *time.Time
	Address            *Address
	Active             *bool
	Email              *string
	Designation        *string
	ShiftDuty          *ShiftDuty
	MaxBalance         *float64
	AcceptsPaymentType []PaymentType
	Documents          map[string]string
}

// Empty reports whether the patch carries no change at all.
func (p AccountPatch) Empty() bool {
	return p.Company == nil && p.UserTypeID == nil && p.ReportingManager == nil &&
		p.Name == nil && p.DOB == nil && p.Address == nil && p.Active == nil &&
		p.Email == nil && p.Designation == nil && p.ShiftDuty == nil &&
		p.MaxBalance == nil && p.AcceptsPaymentType == nil && len(p.Documents) == 0
}
