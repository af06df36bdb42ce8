package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/account-service/internal/model"
)

// Collection and table names.
const (
	AccountsCollection = "users"
	AreasCollection    = "areas"
	CitiesCollection   = "cities"
)

// AccountQuery selects a single account. Exactly one of ID, Contact or
// Email is expected to be set. ActiveOnly restricts the match to
// accounts whose active flag is true.
type AccountQuery struct {
	ID         *primitive.ObjectID
	Contact    *int64
	Email      string
	ActiveOnly bool
}

// ByID, ByContact and ByEmail build the common queries.
func ByID(id primitive.ObjectID) AccountQuery { return AccountQuery{ID: &id} }

func ByContact(contact int64) AccountQuery { return AccountQuery{Contact: &contact} }

func ByEmail(email string) AccountQuery { return AccountQuery{Email: email} }

// Active returns a copy of q restricted to active accounts when active
// is true.
func (q AccountQuery) Active(active bool) AccountQuery {
	q.ActiveOnly = active
	return q
}

// ListFilter narrows an account listing. Nil fields are not filtered on.
type ListFilter struct {
	Active *bool
	Branch *primitive.ObjectID
}

// AccountRepository persists accounts.
type AccountRepository interface {
	// Insert stores a new account. A contact collision yields
	// ErrDuplicateContact.
	Insert(ctx context.Context, a *model.Account) error
	// FindOne returns the single account matching q. No match yields
	// ErrNotFound and several matches yield ErrAmbiguous.
	FindOne(ctx context.Context, q AccountQuery) (model.Account, error)
	// Update applies a partial update and fails with ErrNotFound unless
	// exactly one record matched.
	Update(ctx context.Context, id primitive.ObjectID, p model.AccountPatch) error
	SetOTP(ctx context.Context, id primitive.ObjectID, otp model.OTP) error
	ClearOTP(ctx context.Context, id primitive.ObjectID) error
	// UpdatePassword replaces the password hash and, when clearOTP is
	// set, removes the pending OTP in the same write.
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string, clearOTP bool) error
	// Deactivate sets active=false. It is idempotent and does not report
	// unknown ids.
	Deactivate(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f ListFilter) ([]model.AccountSummary, error)
}

// AreaRepository persists areas and resolves pincodes to cities.
type AreaRepository interface {
	Create(ctx context.Context, a *model.Area) error
	Update(ctx context.Context, id primitive.ObjectID, p model.AreaPatch) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Get(ctx context.Context, id primitive.ObjectID) (model.Area, error)
	// CityByPincode returns the city of the first area carrying pincode.
	CityByPincode(ctx context.Context, pincode int) (model.City, error)
}
