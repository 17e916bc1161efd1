package entities

import (
	"github.com/google/uuid"
)

type Tag struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name  string    `gorm:"uniqueIndex;not null" json:"name"`
	Color string    `gorm:"uniqueIndex;not null" json:"color"`
	Slug  string    `gorm:"uniqueIndex;not null" json:"slug"`

	Timestamp
}

// Ingredient names are deliberately not unique: "salt" and "salt, coarse"
// coexist, and the same name may appear with different measurement units.
type Ingredient struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name            string    `gorm:"index;not null" json:"name"`
	MeasurementUnit string    `gorm:"not null" json:"measurement_unit"`

	Timestamp
}
