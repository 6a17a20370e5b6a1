package newsletter

import "time"

// Subscriber is a newsletter signup. Email is unique; resubscribing the same
// address is rejected at the database level.
type Subscriber struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"size:320;uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName keeps the table name stable across gorm naming strategies.
func (Subscriber) TableName() string {
	return "newsletter_subscribers"
}
