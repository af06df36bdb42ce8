package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/account-service/internal/model"
)

// accountColumns is the column order used by every SELECT and INSERT on
// the users table.
const accountColumns = "id,company,branches,fleets,departments,app_departments,user_type_id," +
	"first_name,last_name,role,dob,address_l1,address_l2,address_city,address_pincode," +
	"active,contact,password_hash,email,reporting_manager,designation,shift_start,shift_end," +
	"otp_code,otp_expires_at,user_profile,pan_card,aadhar_card,salary_slip,bank_statement,agreement," +
	"max_balance,accepts_payment_type,created_at"

// SQLAccountRepo stores accounts in the MySQL `users` table. Ids are
// ObjectID hex strings so both backends hand out the same identities.
// The connection must be opened with clientFoundRows=true so that
// RowsAffected reports matched rows.
type SQLAccountRepo struct{ DB *sql.DB }

func NewSQLAccountRepo(db *sql.DB) *SQLAccountRepo { return &SQLAccountRepo{DB: db} }

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func oidArg(id *primitive.ObjectID) interface{} {
	if id == nil {
		return nil
	}
	return id.Hex()
}

func timeArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func jsonArg(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return []byte("[]"), nil
	}
	return b, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Insert stores the account. A collision on the contact unique key maps
// to ErrDuplicateContact.
func (r *SQLAccountRepo) Insert(ctx context.Context, a *model.Account) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	lists := make([][]byte, 0, 5)
	for _, v := range []interface{}{a.Branches, a.Fleets, a.Departments, a.AppDepartments, a.AcceptsPaymentType} {
		b, err := jsonArg(v)
		if err != nil {
			return storeErr("insert", err)
		}
		lists = append(lists, b)
	}
	var shiftStart, shiftEnd *time.Time
	if a.ShiftDuty != nil {
		shiftStart, shiftEnd = a.ShiftDuty.StartTime, a.ShiftDuty.EndTime
	}
	var otpCode, otpExp interface{}
	if a.OTP != nil {
		otpCode, otpExp = a.OTP.Code, a.OTP.ExpiresAt.UTC()
	}
	var pincode interface{}
	if a.Address.Pincode != 0 {
		pincode = a.Address.Pincode
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users ("+accountColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)",
		a.ID.Hex(), oidArg(a.Company), lists[0], lists[1], lists[2], lists[3], oidArg(a.UserTypeID),
		a.Name.First, a.Name.Last, string(a.Role), timeArg(a.DOB),
		a.Address.Line1, a.Address.Line2, oidArg(a.Address.City), pincode,
		a.Active, a.Contact, a.PasswordHash, nullString(a.Email), oidArg(a.ReportingManager), a.Designation,
		timeArg(shiftStart), timeArg(shiftEnd), otpCode, otpExp,
		a.UserProfile, a.PanCard, a.AadharCard, a.SalarySlip, a.BankStatement, a.Agreement,
		a.MaxBalance, lists[4], a.CreatedAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateContact
		}
		return storeErr("insert", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func parseOID(s sql.NullString) (*primitive.ObjectID, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(s.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func scanAccount(s rowScanner) (model.Account, error) {
	var a model.Account
	var id, role string
	var company, userType, city, manager, email, otpCode sql.NullString
	var branches, fleets, departments, appDeps, payments []byte
	var dob, shiftStart, shiftEnd, otpExp sql.NullTime
	var pincode sql.NullInt64
	err := s.Scan(&id, &company, &branches, &fleets, &departments, &appDeps, &userType,
		&a.Name.First, &a.Name.Last, &role, &dob, &a.Address.Line1, &a.Address.Line2, &city, &pincode,
		&a.Active, &a.Contact, &a.PasswordHash, &email, &manager, &a.Designation, &shiftStart, &shiftEnd,
		&otpCode, &otpExp, &a.UserProfile, &a.PanCard, &a.AadharCard, &a.SalarySlip, &a.BankStatement, &a.Agreement,
		&a.MaxBalance, &payments, &a.CreatedAt)
	if err != nil {
		return model.Account{}, err
	}
	if a.ID, err = primitive.ObjectIDFromHex(id); err != nil {
		return model.Account{}, err
	}
	if a.Company, err = parseOID(company); err != nil {
		return model.Account{}, err
	}
	if a.UserTypeID, err = parseOID(userType); err != nil {
		return model.Account{}, err
	}
	if a.ReportingManager, err = parseOID(manager); err != nil {
		return model.Account{}, err
	}
	if a.Address.City, err = parseOID(city); err != nil {
		return model.Account{}, err
	}
	for _, l := range []struct {
		raw []byte
		dst interface{}
	}{
		{branches, &a.Branches}, {fleets, &a.Fleets}, {departments, &a.Departments},
		{appDeps, &a.AppDepartments}, {payments, &a.AcceptsPaymentType},
	} {
		if len(l.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(l.raw, l.dst); err != nil {
			return model.Account{}, err
		}
	}
	a.Role = model.Role(role)
	a.Email = email.String
	a.DOB = parseTime(dob)
	if pincode.Valid {
		a.Address.Pincode = int(pincode.Int64)
	}
	if shiftStart.Valid || shiftEnd.Valid {
		a.ShiftDuty = &model.ShiftDuty{StartTime: parseTime(shiftStart), EndTime: parseTime(shiftEnd)}
	}
	if otpCode.Valid && otpExp.Valid {
		a.OTP = &model.OTP{Code: otpCode.String, ExpiresAt: otpExp.Time}
	}
	return a, nil
}

func accountWhere(q AccountQuery) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if q.ID != nil {
		conds = append(conds, "id=?")
		args = append(args, q.ID.Hex())
	}
	if q.Contact != nil {
		conds = append(conds, "contact=?")
		args = append(args, *q.Contact)
	}
	if q.Email != "" {
		conds = append(conds, "email=?")
		args = append(args, q.Email)
	}
	if q.ActiveOnly {
		conds = append(conds, "active=1")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// FindOne reads at most two rows so that an ambiguous match is reported
// rather than resolved arbitrarily.
func (r *SQLAccountRepo) FindOne(ctx context.Context, q AccountQuery) (model.Account, error) {
	where, args := accountWhere(q)
	rows, err := r.DB.QueryContext(ctx, "SELECT "+accountColumns+" FROM users"+where+" LIMIT 2", args...)
	if err != nil {
		return model.Account{}, storeErr("find", err)
	}
	defer rows.Close()
	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return model.Account{}, storeErr("find", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return model.Account{}, storeErr("find", err)
	}
	switch len(out) {
	case 0:
		return model.Account{}, ErrNotFound
	case 1:
		return out[0], nil
	default:
		return model.Account{}, ErrAmbiguous
	}
}

func accountPatchSet(p model.AccountPatch) ([]string, []interface{}, error) {
	var sets []string
	var args []interface{}
	add := func(col string, v interface{}) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.Company != nil {
		add("company", p.Company.Hex())
	}
	if p.UserTypeID != nil {
		add("user_type_id", p.UserTypeID.Hex())
	}
	if p.ReportingManager != nil {
		add("reporting_manager", p.ReportingManager.Hex())
	}
	if p.Name != nil {
		add("first_name", p.Name.First)
		add("last_name", p.Name.Last)
	}
	if p.DOB != nil {
		add("dob", p.DOB.UTC())
	}
	if p.Address != nil {
		var pincode interface{}
		if p.Address.Pincode != 0 {
			pincode = p.Address.Pincode
		}
		add("address_l1", p.Address.Line1)
		add("address_l2", p.Address.Line2)
		add("address_city", oidArg(p.Address.City))
		add("address_pincode", pincode)
	}
	if p.Active != nil {
		add("active", *p.Active)
	}
	if p.Email != nil {
		add("email", nullString(*p.Email))
	}
	if p.Designation != nil {
		add("designation", *p.Designation)
	}
	if p.ShiftDuty != nil {
		add("shift_start", timeArg(p.ShiftDuty.StartTime))
		add("shift_end", timeArg(p.ShiftDuty.EndTime))
	}
	if p.MaxBalance != nil {
		add("max_balance", *p.MaxBalance)
	}
	if p.AcceptsPaymentType != nil {
		b, err := jsonArg(p.AcceptsPaymentType)
		if err != nil {
			return nil, nil, err
		}
		add("accepts_payment_type", b)
	}
	for _, field := range model.DocumentFields {
		if url, ok := p.Documents[field]; ok {
			add(documentColumns[field], url)
		}
	}
	return sets, args, nil
}

var documentColumns = map[string]string{
	model.DocUserProfile:   "user_profile",
	model.DocPanCard:       "pan_card",
	model.DocAadharCard:    "aadhar_card",
	model.DocSalarySlip:    "salary_slip",
	model.DocBankStatement: "bank_statement",
	model.DocAgreement:     "agreement",
}

func (r *SQLAccountRepo) Update(ctx context.Context, id primitive.ObjectID, p model.AccountPatch) error {
	sets, args, err := accountPatchSet(p)
	if err != nil {
		return storeErr("update", err)
	}
	if len(sets) == 0 {
		var n int
		if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE id=?", id.Hex()).Scan(&n); err != nil {
			return storeErr("update", err)
		}
		if n != 1 {
			return ErrNotFound
		}
		return nil
	}
	args = append(args, id.Hex())
	return r.execOne(ctx, "update", "UPDATE users SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
}

// execOne runs a single-row UPDATE and maps zero matched rows to
// ErrNotFound.
func (r *SQLAccountRepo) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return storeErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(op, err)
	}
	if n != 1 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLAccountRepo) SetOTP(ctx context.Context, id primitive.ObjectID, otp model.OTP) error {
	return r.execOne(ctx, "set_otp", "UPDATE users SET otp_code=?, otp_expires_at=? WHERE id=?",
		otp.Code, otp.ExpiresAt.UTC(), id.Hex())
}

func (r *SQLAccountRepo) ClearOTP(ctx context.Context, id primitive.ObjectID) error {
	return r.execOne(ctx, "clear_otp", "UPDATE users SET otp_code=NULL, otp_expires_at=NULL WHERE id=?", id.Hex())
}

func (r *SQLAccountRepo) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string, clearOTP bool) error {
	if clearOTP {
		return r.execOne(ctx, "update_password",
			"UPDATE users SET password_hash=?, otp_code=NULL, otp_expires_at=NULL WHERE id=?", hash, id.Hex())
	}
	return r.execOne(ctx, "update_password", "UPDATE users SET password_hash=? WHERE id=?", hash, id.Hex())
}

func (r *SQLAccountRepo) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.DB.ExecContext(ctx, "UPDATE users SET active=0 WHERE id=?", id.Hex()); err != nil {
		return storeErr("deactivate", err)
	}
	return nil
}

func (r *SQLAccountRepo) List(ctx context.Context, f ListFilter) ([]model.AccountSummary, error) {
	var conds []string
	var args []interface{}
	if f.Active != nil {
		conds = append(conds, "active=?")
		args = append(args, *f.Active)
	}
	if f.Branch != nil {
		conds = append(conds, "JSON_CONTAINS(branches, JSON_QUOTE(?))")
		args = append(args, f.Branch.Hex())
	}
	query := "SELECT id,first_name,last_name,contact FROM users"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, query+" ORDER BY created_at", args...)
	if err != nil {
		return nil, storeErr("list", err)
	}
	defer rows.Close()
	out := []model.AccountSummary{}
	for rows.Next() {
		var s model.AccountSummary
		var id string
		if err := rows.Scan(&id, &s.Name.First, &s.Name.Last, &s.Contact); err != nil {
			return nil, storeErr("list", err)
		}
		if s.ID, err = primitive.ObjectIDFromHex(id); err != nil {
			return nil, storeErr("list", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list", err)
	}
	return out, nil
}
