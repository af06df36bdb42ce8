package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOTPValidAt(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		otp  *OTP
		want bool
	}{
		{"nil", nil, false},
		{"empty code", &OTP{ExpiresAt: now.Add(time.Minute)}, false},
		{"zero expiry", &OTP{Code: "123456"}, false},
		{"expired one second ago", &OTP{Code: "123456", ExpiresAt: now.Add(-time.Second)}, false},
		{"expires exactly now", &OTP{Code: "123456", ExpiresAt: now}, true},
		{"in the future", &OTP{Code: "123456", ExpiresAt: now.Add(10 * time.Minute)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.otp.ValidAt(now))
		})
	}
}

func TestRoleAndPaymentTypeSets(t *testing.T) {
	for _, r := range []Role{RoleSuperAdmin, RoleAdmin, RoleOperator} {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("M").Valid())
	assert.False(t, Role("").Valid())

	assert.True(t, PaymentUPI.Valid())
	assert.False(t, PaymentType("BITCOIN").Valid())
}

func validAccount() Account {
	return Account{
		ID:           primitive.NewObjectID(),
		Name:         Name{First: "Asha", Last: "Rao"},
		Role:         RoleOperator,
		Contact:      9876543210,
		PasswordHash: "$2a$10$hash",
		Active:       true,
	}
}

func TestAccountValidate(t *testing.T) {
	a := validAccount()
	assert.Empty(t, a.Validate(false))

	t.Run("contact out of range", func(t *testing.T) {
		a := validAccount()
		a.Contact = 12345
		errs := a.Validate(false)
		assert.Len(t, errs, 1)
		assert.Equal(t, "contact", errs[0].Field)
	})

	t.Run("unknown role and negative balance", func(t *testing.T) {
		a := validAccount()
		a.Role = "M"
		a.MaxBalance = -1
		fields := fieldNames(a.Validate(false))
		assert.ElementsMatch(t, []string{"role", "maxBalance"}, fields)
	})

	t.Run("bad payment type", func(t *testing.T) {
		a := validAccount()
		a.AcceptsPaymentType = []PaymentType{PaymentUPI, "GOLD"}
		assert.Equal(t, []string{"acceptsPaymentType"}, fieldNames(a.Validate(false)))
	})

	t.Run("address required by policy", func(t *testing.T) {
		a := validAccount()
		assert.ElementsMatch(t,
			[]string{"address.l1", "address.l2", "address.city", "address.pincode"},
			fieldNames(a.Validate(true)))

		city := primitive.NewObjectID()
		a.Address = Address{Line1: "1 Main St", Line2: "Ward 4", City: &city, Pincode: 560001}
		assert.Empty(t, a.Validate(true))
	})

	t.Run("malformed pincode", func(t *testing.T) {
		a := validAccount()
		a.Address.Pincode = 12
		assert.Equal(t, []string{"address.pincode"}, fieldNames(a.Validate(false)))
	})
}

func TestSetDocument(t *testing.T) {
	var a Account
	for _, f := range DocumentFields {
		assert.True(t, a.SetDocument(f, "http://files/"+f))
	}
	assert.Equal(t, "http://files/panCard", a.PanCard)
	assert.Equal(t, "http://files/agreement", a.Agreement)
	assert.False(t, a.SetDocument("passport", "x"))
}

func TestAccountPatchEmpty(t *testing.T) {
	assert.True(t, AccountPatch{}.Empty())
	d := "Driver"
	assert.False(t, AccountPatch{Designation: &d}.Empty())
	assert.False(t, AccountPatch{Documents: map[string]string{DocPanCard: "u"}}.Empty())
}

type sample struct {
	Contact int64  `json:"contact" validate:"required,min=1000000000,max=9999999999"`
	Branch  string `json:"branch" validate:"omitempty,mongodb"`
	Role    string `json:"role" validate:"omitempty,oneof=S A O"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	assert.Nil(t, Validate(sample{Contact: 9999999999}))

	errs := Validate(sample{Contact: 5, Branch: "zzz", Role: "M"})
	assert.ElementsMatch(t, []string{"contact", "branch", "role"}, fieldNames(errs))
	for _, e := range errs {
		if e.Field == "role" {
			assert.Equal(t, "role must be one of [S A O]", e.Message)
		}
	}

	verr := &ValidationError{Fields: errs}
	assert.Contains(t, verr.Error(), "contact must be at least 1000000000")
}

func fieldNames(errs []FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}
