package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/iliyamo/account-service/internal/model"
)

const usersNS = "accounts.users"

func accountDoc(id primitive.ObjectID, contact int64) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: bson.D{{Key: "fName", Value: "Asha"}, {Key: "lName", Value: "Rao"}}},
		{Key: "role", Value: "O"},
		{Key: "active", Value: true},
		{Key: "contact", Value: contact},
		{Key: "password", Value: "$2a$10$hash"},
	}
}

func TestMongoAccountRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock).DatabaseName("accounts"))

	mt.Run("insert assigns id", func(mt *mtest.T) {
		repo := NewMongoAccountRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		a := &model.Account{Contact: 9876543210}
		require.NoError(mt, repo.Insert(context.Background(), a))
		assert.False(mt, a.ID.IsZero())
	})

	mt.Run("insert duplicate contact", func(mt *mtest.T) {
		repo := NewMongoAccountRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error",
		}))

		err := repo.Insert(context.Background(), &model.Account{Contact: 9876543210})
		assert.ErrorIs(mt, err, ErrDuplicateContact)
	})

	mt.Run("find one", func(mt *mtest.T) {
		repo := NewMongoAccountRepo(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch, accountDoc(id, 9876543210)))

		a, err := repo.FindOne(context.Background(), ByContact(9876543210).Active(true))
		require.NoError(mt, err)
		assert.Equal(mt, id, a.ID)
		assert.Equal(mt, "Asha", a.Name.First)
		assert.Equal(mt, "$2a$10$hash", a.PasswordHash)
		assert.Nil(mt, a.OTP)
	})

	mt.Run("find none", func(mt *mtest.T) {
		repo := NewMongoAccountRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch))

		_, err := repo.FindOne(context.Background(), ByEmail("nobody@example.com"))
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("find ambiguous", func(mt *mtest.T) {
		repo := NewMongoAccountRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch,
			accountDoc(primitive.NewObjectID(), 9000000001),
			accountDoc(primitive.NewObjectID(), 9000000002)))

		_, err := repo.FindOne(context.Background(), ByEmail("shared@example.com"))
		assert.ErrorIs(mt, err, ErrAmbiguous)
	})

	mt.Run("update no match", func(mt *mtest.T) {
		repo := NewMongoAccountRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		d := "Driver"
		err := repo.Update(context.Background(), primitive.NewObjectID(), model.AccountPatch{Designation: &d})
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("update matched", func(mt *mtest.T) {
		repo := NewMongoAccountRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}))

		d := "Driver"
		err := repo.Update(context.Background(), primitive.NewObjectID(), model.AccountPatch{Designation: &d})
		assert.NoError(mt, err)
	})

	mt.Run("deactivate unknown is silent", func(mt *mtest.T) {
		repo := NewMongoAccountRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		assert.NoError(mt, repo.Deactivate(context.Background(), primitive.NewObjectID()))
	})

	mt.Run("list", func(mt *mtest.T) {
		repo := NewMongoAccountRepo(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "name", Value: bson.D{{Key: "fName", Value: "Asha"}, {Key: "lName", Value: "Rao"}}},
			{Key: "contact", Value: int64(9876543210)},
		}))

		active := true
		out, err := repo.List(context.Background(), ListFilter{Active: &active})
		require.NoError(mt, err)
		assert.Equal(mt, []model.AccountSummary{{ID: id, Name: model.Name{First: "Asha", Last: "Rao"}, Contact: 9876543210}}, out)
	})
}

func TestAccountPatchDoc(t *testing.T) {
	d := "Driver"
	off := false
	doc := accountPatchDoc(model.AccountPatch{
		Designation: &d,
		Active:      &off,
		Documents:   map[string]string{model.DocAgreement: "u1", model.DocUserProfile: "u2"},
	})
	assert.Equal(t, bson.D{
		{Key: "active", Value: false},
		{Key: "designation", Value: "Driver"},
		{Key: "userProfile", Value: "u2"},
		{Key: "agreement", Value: "u1"},
	}, doc)
	assert.Empty(t, accountPatchDoc(model.AccountPatch{}))
}

func TestMongoAreaRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock).DatabaseName("accounts"))

	mt.Run("city by pincode", func(mt *mtest.T) {
		repo := NewMongoAreaRepo(mt.DB)
		city := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "accounts.areas", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: city},
			{Key: "name", Value: "Bengaluru"},
			{Key: "state", Value: "KA"},
		}))

		c, err := repo.CityByPincode(context.Background(), 560001)
		require.NoError(mt, err)
		assert.Equal(mt, model.City{ID: city, Name: "Bengaluru", State: "KA"}, c)
	})

	mt.Run("unknown pincode", func(mt *mtest.T) {
		repo := NewMongoAreaRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "accounts.areas", mtest.FirstBatch))

		_, err := repo.CityByPincode(context.Background(), 999999)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("get missing area", func(mt *mtest.T) {
		repo := NewMongoAreaRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "accounts.areas", mtest.FirstBatch))

		_, err := repo.Get(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("delete missing area", func(mt *mtest.T) {
		repo := NewMongoAreaRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := repo.Delete(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}
