package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/account-service/internal/model"
)

// SQLAreaRepo stores areas in the MySQL `areas` table and resolves
// pincodes by joining `cities`.
type SQLAreaRepo struct{ DB *sql.DB }

func NewSQLAreaRepo(db *sql.DB) *SQLAreaRepo { return &SQLAreaRepo{DB: db} }

func (r *SQLAreaRepo) Create(ctx context.Context, a *model.Area) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO areas (id, name, city_id, pincode) VALUES (?,?,?,?)",
		a.ID.Hex(), a.Name, a.City.Hex(), a.Pincode)
	if err != nil {
		return areaErr("create", err)
	}
	return nil
}

func (r *SQLAreaRepo) Update(ctx context.Context, id primitive.ObjectID, p model.AreaPatch) error {
	var sets []string
	var args []interface{}
	if p.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *p.Name)
	}
	if p.City != nil {
		sets = append(sets, "city_id=?")
		args = append(args, p.City.Hex())
	}
	if p.Pincode != nil {
		sets = append(sets, "pincode=?")
		args = append(args, *p.Pincode)
	}
	if len(sets) == 0 {
		_, err := r.Get(ctx, id)
		return err
	}
	args = append(args, id.Hex())
	res, err := r.DB.ExecContext(ctx, "UPDATE areas SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
	if err != nil {
		return areaErr("update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLAreaRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM areas WHERE id=?", id.Hex())
	if err != nil {
		return areaErr("delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLAreaRepo) Get(ctx context.Context, id primitive.ObjectID) (model.Area, error) {
	var a model.Area
	var rawID, rawCity string
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, city_id, pincode FROM areas WHERE id=? LIMIT 1", id.Hex()).
		Scan(&rawID, &a.Name, &rawCity, &a.Pincode)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Area{}, ErrNotFound
	}
	if err != nil {
		return model.Area{}, areaErr("get", err)
	}
	if a.ID, err = primitive.ObjectIDFromHex(rawID); err != nil {
		return model.Area{}, areaErr("get", err)
	}
	if a.City, err = primitive.ObjectIDFromHex(rawCity); err != nil {
		return model.Area{}, areaErr("get", err)
	}
	return a, nil
}

func (r *SQLAreaRepo) CityByPincode(ctx context.Context, pincode int) (model.City, error) {
	var c model.City
	var rawID string
	var state sql.NullString
	err := r.DB.QueryRowContext(ctx,
		`SELECT c.id, c.name, c.state FROM areas a
		 JOIN cities c ON c.id = a.city_id
		 WHERE a.pincode = ? LIMIT 1`, pincode).
		Scan(&rawID, &c.Name, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return model.City{}, ErrNotFound
	}
	if err != nil {
		return model.City{}, areaErr("city_by_pincode", err)
	}
	if c.ID, err = primitive.ObjectIDFromHex(rawID); err != nil {
		return model.City{}, areaErr("city_by_pincode", err)
	}
	c.State = state.String
	return c, nil
}
