package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/account-service/internal/model"
)

func newSQLRepo(t *testing.T) (*SQLAccountRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLAccountRepo(db), mock
}

func accountRow(id, branch primitive.ObjectID, contact int64, otpExp time.Time) []driver.Value {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return []driver.Value{
		id.Hex(), nil, []byte(`["` + branch.Hex() + `"]`), []byte("[]"), []byte("[]"), []byte("[]"), nil,
		"Asha", "Rao", "A", nil, "1 Main St", "", nil, int64(560001),
		true, contact, "$2a$10$hash", "asha@example.com", nil, "Manager", nil, nil,
		"042424", otpExp, "", "http://files/pan.pdf", "", "", "", "",
		float64(250), []byte(`["UPI","CASH"]`), created,
	}
}

func TestSQLFindOneScansAccount(t *testing.T) {
	repo, mock := newSQLRepo(t)
	id, branch := primitive.NewObjectID(), primitive.NewObjectID()
	exp := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE contact=? AND active=1 LIMIT 2")).
		WithArgs(int64(9876543210)).
		WillReturnRows(sqlmock.NewRows(strings.Split(accountColumns, ",")).
			AddRow(accountRow(id, branch, 9876543210, exp)...))

	a, err := repo.FindOne(context.Background(), ByContact(9876543210).Active(true))
	require.NoError(t, err)
	assert.Equal(t, id, a.ID)
	assert.Equal(t, []primitive.ObjectID{branch}, a.Branches)
	assert.Equal(t, model.Name{First: "Asha", Last: "Rao"}, a.Name)
	assert.Equal(t, model.RoleAdmin, a.Role)
	assert.Equal(t, 560001, a.Address.Pincode)
	assert.Nil(t, a.Address.City)
	assert.Equal(t, "asha@example.com", a.Email)
	assert.Equal(t, "http://files/pan.pdf", a.PanCard)
	assert.Equal(t, []model.PaymentType{model.PaymentUPI, model.PaymentCash}, a.AcceptsPaymentType)
	require.NotNil(t, a.OTP)
	assert.Equal(t, "042424", a.OTP.Code)
	assert.True(t, a.OTP.ExpiresAt.Equal(exp))
	assert.Nil(t, a.ShiftDuty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLFindOneMatchCounts(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		repo, mock := newSQLRepo(t)
		mock.ExpectQuery("FROM users WHERE email=\\? LIMIT 2").
			WillReturnRows(sqlmock.NewRows(strings.Split(accountColumns, ",")))
		_, err := repo.FindOne(context.Background(), ByEmail("x@y.z"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ambiguous", func(t *testing.T) {
		repo, mock := newSQLRepo(t)
		exp := time.Now()
		mock.ExpectQuery("FROM users WHERE email=\\? LIMIT 2").
			WillReturnRows(sqlmock.NewRows(strings.Split(accountColumns, ",")).
				AddRow(accountRow(primitive.NewObjectID(), primitive.NewObjectID(), 9000000001, exp)...).
				AddRow(accountRow(primitive.NewObjectID(), primitive.NewObjectID(), 9000000002, exp)...))
		_, err := repo.FindOne(context.Background(), ByEmail("asha@example.com"))
		assert.ErrorIs(t, err, ErrAmbiguous)
	})
}

func TestSQLInsertDuplicateContact(t *testing.T) {
	repo, mock := newSQLRepo(t)
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	a := &model.Account{Name: model.Name{First: "A", Last: "B"}, Role: model.RoleOperator, Contact: 9000000000}
	err := repo.Insert(context.Background(), a)
	assert.ErrorIs(t, err, ErrDuplicateContact)
	assert.False(t, a.ID.IsZero(), "id is assigned before the write")
}

func TestSQLInsertEncodesLists(t *testing.T) {
	repo, mock := newSQLRepo(t)
	a := &model.Account{
		ID:                 primitive.NewObjectID(),
		Name:               model.Name{First: "A", Last: "B"},
		Role:               model.RoleOperator,
		Active:             true,
		Contact:            9000000000,
		PasswordHash:       "h",
		AcceptsPaymentType: []model.PaymentType{model.PaymentNEFT},
	}
	mock.ExpectExec("INSERT INTO users").
		WithArgs(a.ID.Hex(), nil, []byte("[]"), []byte("[]"), []byte("[]"), []byte("[]"), nil,
			"A", "B", "O", nil, "", "", nil, nil,
			true, int64(9000000000), "h", nil, nil, "", nil, nil, nil, nil,
			"", "", "", "", "", "", float64(0), []byte(`["NEFT"]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUpdateRequiresExactlyOneMatch(t *testing.T) {
	repo, mock := newSQLRepo(t)
	id := primitive.NewObjectID()
	designation := "Driver"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET designation=?,pan_card=? WHERE id=?")).
		WithArgs("Driver", "http://files/p.pdf", id.Hex()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), id, model.AccountPatch{
		Designation: &designation,
		Documents:   map[string]string{model.DocPanCard: "http://files/p.pdf"},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET designation=? WHERE id=?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Update(context.Background(), id, model.AccountPatch{Designation: &designation}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUpdatePassword(t *testing.T) {
	repo, mock := newSQLRepo(t)
	id := primitive.NewObjectID()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash=? WHERE id=?")).
		WithArgs("new", id.Hex()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash=?, otp_code=NULL, otp_expires_at=NULL WHERE id=?")).
		WithArgs("newer", id.Hex()).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), id, "new", false))
	require.NoError(t, repo.UpdatePassword(context.Background(), id, "newer", true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDeactivateIsSilentForUnknownID(t *testing.T) {
	repo, mock := newSQLRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET active=0 WHERE id=?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.NoError(t, repo.Deactivate(context.Background(), primitive.NewObjectID()))
}

func TestSQLListProjection(t *testing.T) {
	repo, mock := newSQLRepo(t)
	branch := primitive.NewObjectID()
	id := primitive.NewObjectID()
	active := true

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id,first_name,last_name,contact FROM users WHERE active=? AND JSON_CONTAINS(branches, JSON_QUOTE(?)) ORDER BY created_at")).
		WithArgs(true, branch.Hex()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "contact"}).
			AddRow(id.Hex(), "Asha", "Rao", int64(9876543210)))

	out, err := repo.List(context.Background(), ListFilter{Active: &active, Branch: &branch})
	require.NoError(t, err)
	assert.Equal(t, []model.AccountSummary{{ID: id, Name: model.Name{First: "Asha", Last: "Rao"}, Contact: 9876543210}}, out)
}

func TestSQLListEmptyIsNotNil(t *testing.T) {
	repo, mock := newSQLRepo(t)
	mock.ExpectQuery("SELECT id,first_name,last_name,contact FROM users ORDER BY created_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "contact"}))

	out, err := repo.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestSQLCityByPincode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewSQLAreaRepo(db)
	city := primitive.NewObjectID()

	mock.ExpectQuery("JOIN cities c ON c.id = a.city_id").WithArgs(560001).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "state"}).AddRow(city.Hex(), "Bengaluru", "KA"))
	mock.ExpectQuery("JOIN cities c ON c.id = a.city_id").WithArgs(999999).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "state"}))

	c, err := repo.CityByPincode(context.Background(), 560001)
	require.NoError(t, err)
	assert.Equal(t, model.City{ID: city, Name: "Bengaluru", State: "KA"}, c)

	_, err = repo.CityByPincode(context.Background(), 999999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLAreaDeleteUnknown(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec("DELETE FROM areas").WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewSQLAreaRepo(db).Delete(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}
