package entities

import (
	"github.com/google/uuid"
	"time"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Password  string    `gorm:"not null" json:"-"`

	Recipes []*Recipe `gorm:"foreignKey:AuthorID"`
	Timestamp
}

type Subscription struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	AuthorID     uuid.UUID `gorm:"uniqueIndex:idx_author_subscriber" json:"author_id"`
	SubscriberID uuid.UUID `gorm:"uniqueIndex:idx_author_subscriber" json:"subscriber_id"`
	CreatedAt    time.Time `gorm:"type:timestamp" json:"created_at"`

	Author     *User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Subscriber *User `gorm:"foreignKey:SubscriberID;constraint:OnDelete:CASCADE"`
}
