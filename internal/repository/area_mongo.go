package repository

import (
	"context"
	"errors"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/iliyamo/account-service/internal/model"
)

// MongoAreaRepo stores areas in the `areas` collection. Pincode lookups
// are read-only and go to secondaries when available.
type MongoAreaRepo struct {
	coll   *mongo.Collection
	lookup *mongo.Collection
}

func NewMongoAreaRepo(db *mongo.Database) *MongoAreaRepo {
	coll := db.Collection(AreasCollection)
	lookup := db.Collection(AreasCollection,
		options.Collection().SetReadPreference(readpref.SecondaryPreferred()))
	return &MongoAreaRepo{coll: coll, lookup: lookup}
}

func areaErr(op string, err error) error {
	return oops.In("repository").Code("AREA_STORE").With("operation", op).Wrap(err)
}

func (r *MongoAreaRepo) Create(ctx context.Context, a *model.Area) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, a); err != nil {
		return areaErr("create", err)
	}
	return nil
}

func (r *MongoAreaRepo) Update(ctx context.Context, id primitive.ObjectID, p model.AreaPatch) error {
	set := bson.D{}
	if p.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *p.Name})
	}
	if p.City != nil {
		set = append(set, bson.E{Key: "city", Value: *p.City})
	}
	if p.Pincode != nil {
		set = append(set, bson.E{Key: "pincode", Value: *p.Pincode})
	}
	if len(set) == 0 {
		_, err := r.Get(ctx, id)
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return areaErr("update", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoAreaRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return areaErr("delete", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoAreaRepo) Get(ctx context.Context, id primitive.ObjectID) (model.Area, error) {
	var a model.Area
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Area{}, ErrNotFound
	}
	if err != nil {
		return model.Area{}, areaErr("get", err)
	}
	return a, nil
}

// CityByPincode matches the first area with the pincode and joins its
// city document.
func (r *MongoAreaRepo) CityByPincode(ctx context.Context, pincode int) (model.City, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "pincode", Value: pincode}}}},
		{{Key: "$limit", Value: 1}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: CitiesCollection},
			{Key: "localField", Value: "city"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "city"},
		}}},
		{{Key: "$unwind", Value: "$city"}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$city"}}}},
	}
	cur, err := r.lookup.Aggregate(ctx, pipeline)
	if err != nil {
		return model.City{}, areaErr("city_by_pincode", err)
	}
	defer cur.Close(ctx)
	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return model.City{}, areaErr("city_by_pincode", err)
		}
		return model.City{}, ErrNotFound
	}
	var c model.City
	if err := cur.Decode(&c); err != nil {
		return model.City{}, areaErr("city_by_pincode", err)
	}
	return c, nil
}

// EnsureAreaIndexes creates the pincode index used by lookups.
func EnsureAreaIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(AreasCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pincode", Value: 1}},
		Options: options.Index().SetName("pincode"),
	})
	if err != nil {
		return oops.In("repository").Code("INDEX_FAILED").With("collection", AreasCollection).Wrap(err)
	}
	return nil
}
