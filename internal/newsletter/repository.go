package newsletter

import (
	"context"
	"errors"

	"gorm.io/gorm"

	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
)

// Repository persists subscribers.
type Repository struct {
	db *gorm.DB
}

// NewRepository wraps a gorm handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a subscriber. A duplicate email maps to a validation error
// so the storefront can tell the visitor they are already subscribed.
func (r *Repository) Create(ctx context.Context, subscriber *Subscriber) error {
	err := r.db.WithContext(ctx).Create(subscriber).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || pkgerrors.IsUniqueViolation(err) {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is already subscribed").
			WithDetails(map[string]string{"email": "email is already subscribed"})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to store subscriber")
}

// Count reports the subscriber total.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Subscriber{}).Count(&count).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to count subscribers")
	}
	return count, nil
}
