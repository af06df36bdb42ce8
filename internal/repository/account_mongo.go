package repository

import (
	"context"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/account-service/internal/model"
)

// MongoAccountRepo stores accounts in the `users` collection.
type MongoAccountRepo struct{ coll *mongo.Collection }

func NewMongoAccountRepo(db *mongo.Database) *MongoAccountRepo {
	return &MongoAccountRepo{coll: db.Collection(AccountsCollection)}
}

func storeErr(op string, err error) error {
	return oops.In("repository").Code("ACCOUNT_STORE").With("operation", op).Wrap(err)
}

// Insert assigns an id when missing and stores the account.
func (r *MongoAccountRepo) Insert(ctx context.Context, a *model.Account) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateContact
		}
		return storeErr("insert", err)
	}
	return nil
}

func accountFilter(q AccountQuery) bson.D {
	f := bson.D{}
	if q.ID != nil {
		f = append(f, bson.E{Key: "_id", Value: *q.ID})
	}
	if q.Contact != nil {
		f = append(f, bson.E{Key: "contact", Value: *q.Contact})
	}
	if q.Email != "" {
		f = append(f, bson.E{Key: "email", Value: q.Email})
	}
	if q.ActiveOnly {
		f = append(f, bson.E{Key: "active", Value: true})
	}
	return f
}

// FindOne fetches at most two documents so that duplicates on a
// non-unique key (email) are detected instead of silently picking one.
func (r *MongoAccountRepo) FindOne(ctx context.Context, q AccountQuery) (model.Account, error) {
	cur, err := r.coll.Find(ctx, accountFilter(q), options.Find().SetLimit(2))
	if err != nil {
		return model.Account{}, storeErr("find", err)
	}
	var out []model.Account
	if err := cur.All(ctx, &out); err != nil {
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

func accountPatchDoc(p model.AccountPatch) bson.D {
	set := bson.D{}
	add := func(k string, v interface{}) { set = append(set, bson.E{Key: k, Value: v}) }
	if p.Company != nil {
		add("company", *p.Company)
	}
	if p.UserTypeID != nil {
		add("userTypeId", *p.UserTypeID)
	}
	if p.ReportingManager != nil {
		add("reportingManager", *p.ReportingManager)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.DOB != nil {
		add("dob", *p.DOB)
	}
	if p.Address != nil {
		add("address", *p.Address)
	}
	if p.Active != nil {
		add("active", *p.Active)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Designation != nil {
		add("designation", *p.Designation)
	}
	if p.ShiftDuty != nil {
		add("userShiftDuty", *p.ShiftDuty)
	}
	if p.MaxBalance != nil {
		add("maxBalance", *p.MaxBalance)
	}
	if p.AcceptsPaymentType != nil {
		add("acceptsPaymentType", p.AcceptsPaymentType)
	}
	for _, field := range model.DocumentFields {
		if url, ok := p.Documents[field]; ok {
			add(field, url)
		}
	}
	return set
}

func (r *MongoAccountRepo) Update(ctx context.Context, id primitive.ObjectID, p model.AccountPatch) error {
	set := accountPatchDoc(p)
	if len(set) == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
		if err != nil {
			return storeErr("update", err)
		}
		if n != 1 {
			return ErrNotFound
		}
		return nil
	}
	return r.updateOne(ctx, "update", id, bson.D{{Key: "$set", Value: set}})
}

func (r *MongoAccountRepo) updateOne(ctx context.Context, op string, id primitive.ObjectID, update bson.D) error {
	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return storeErr(op, err)
	}
	if res.MatchedCount != 1 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoAccountRepo) SetOTP(ctx context.Context, id primitive.ObjectID, otp model.OTP) error {
	return r.updateOne(ctx, "set_otp", id, bson.D{{Key: "$set", Value: bson.D{{Key: "otp", Value: otp}}}})
}

func (r *MongoAccountRepo) ClearOTP(ctx context.Context, id primitive.ObjectID) error {
	return r.updateOne(ctx, "clear_otp", id, bson.D{{Key: "$unset", Value: bson.D{{Key: "otp", Value: ""}}}})
}

func (r *MongoAccountRepo) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string, clearOTP bool) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "password", Value: hash}}}}
	if clearOTP {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "otp", Value: ""}}})
	}
	return r.updateOne(ctx, "update_password", id, update)
}

func (r *MongoAccountRepo) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "active", Value: false}}}})
	if err != nil {
		return storeErr("deactivate", err)
	}
	return nil
}

// List returns the {_id, name, contact} projection of matching accounts.
func (r *MongoAccountRepo) List(ctx context.Context, f ListFilter) ([]model.AccountSummary, error) {
	filter := bson.D{}
	if f.Active != nil {
		filter = append(filter, bson.E{Key: "active", Value: *f.Active})
	}
	if f.Branch != nil {
		filter = append(filter, bson.E{Key: "branches", Value: *f.Branch})
	}
	proj := bson.D{{Key: "_id", Value: 1}, {Key: "name", Value: 1}, {Key: "contact", Value: 1}}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetProjection(proj))
	if err != nil {
		return nil, storeErr("list", err)
	}
	out := []model.AccountSummary{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, storeErr("list", err)
	}
	return out, nil
}

// EnsureAccountIndexes creates the unique contact index and the listing
// index. It is safe to call repeatedly.
func EnsureAccountIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(AccountsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "contact", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("contact_unique"),
		},
		{
			Keys:    bson.D{{Key: "company", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index().SetName("company_active"),
		},
	})
	if err != nil {
		return oops.In("repository").Code("INDEX_FAILED").With("collection", AccountsCollection).Wrap(err)
	}
	return nil
}
