package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/repository"
)

const (
	msgInvalidPincode  = "Invalid pincode."
	msgPincodeNotFound = "Pincode not found."
	msgAreaNotFound    = "Area not found."
)

// AreaService manages areas and resolves pincodes.
type AreaService struct {
	areas repository.AreaRepository
}

func NewAreaService(areas repository.AreaRepository) *AreaService {
	return &AreaService{areas: areas}
}

func (s *AreaService) Create(ctx context.Context, a model.Area) (model.Area, error) {
	fe := validateArea(&a.Name, &a.Pincode)
	if a.City.IsZero() {
		fe = append(fe, model.FieldError{Field: "city", Message: "city is required"})
	}
	if len(fe) > 0 {
		return model.Area{}, invalidFields(fe)
	}
	a.ID = primitive.NewObjectID()
	if err := s.areas.Create(ctx, &a); err != nil {
		return model.Area{}, internal("create_area", err)
	}
	return a, nil
}

func (s *AreaService) Update(ctx context.Context, id primitive.ObjectID, p model.AreaPatch) error {
	if fe := validateArea(p.Name, p.Pincode); len(fe) > 0 {
		return invalidFields(fe)
	}
	if err := s.areas.Update(ctx, id, p); err != nil {
		return areaErr("update_area", err)
	}
	return nil
}

func (s *AreaService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.areas.Delete(ctx, id); err != nil {
		return areaErr("delete_area", err)
	}
	return nil
}

func (s *AreaService) View(ctx context.Context, id primitive.ObjectID) (model.Area, error) {
	a, err := s.areas.Get(ctx, id)
	if err != nil {
		return model.Area{}, areaErr("view_area", err)
	}
	return a, nil
}

// CityByPincode resolves a six digit pincode to the city of its first
// area.
func (s *AreaService) CityByPincode(ctx context.Context, raw string) (model.City, error) {
	pincode, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || pincode < model.MinPincode || pincode > model.MaxPincode {
		return model.City{}, newError(ErrInvalidInput, msgInvalidPincode)
	}
	city, err := s.areas.CityByPincode(ctx, pincode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.City{}, newError(ErrInvalidInput, msgPincodeNotFound)
		}
		return model.City{}, internal("city_by_pincode", err)
	}
	return city, nil
}

// validateArea checks the fields that are present.
func validateArea(name *string, pincode *int) []model.FieldError {
	var fe []model.FieldError
	if name != nil && strings.TrimSpace(*name) == "" {
		fe = append(fe, model.FieldError{Field: "name", Message: "name is required"})
	}
	if pincode != nil && (*pincode < model.MinPincode || *pincode > model.MaxPincode) {
		fe = append(fe, model.FieldError{Field: "pincode", Message: "pincode must be a 6 digit number"})
	}
	return fe
}

func areaErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(ErrNotFound, msgAreaNotFound)
	}
	return internal(op, err)
}
