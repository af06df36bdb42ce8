package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Area maps a named locality with a six digit pincode to its city.
// Areas live in the `areas` collection which is indexed on pincode.
type Area struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Name    string             `json:"name" bson:"name"`
	City    primitive.ObjectID `json:"city" bson:"city"`
	Pincode int                `json:"pincode" bson:"pincode"`
}

// City is a row of the `cities` collection referenced by areas and
// account addresses.
type City struct {
	ID    primitive.ObjectID `json:"_id" bson:"_id"`
	Name  string             `json:"name" bson:"name"`
	State string             `json:"state,omitempty" bson:"state,omitempty"`
}

// AreaPatch is a partial update of an area.
type AreaPatch struct {
	Name    *string
	City    *primitive.ObjectID
	Pincode *int
}

// Empty reports whether the patch changes nothing.
func (p AreaPatch) Empty() bool {
	return p.Name == nil && p.City == nil && p.Pincode == nil
}
