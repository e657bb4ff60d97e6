package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rytkhs/event-pay-sub006/internal/domain"
)

type connectAccountRepository struct {
	db *gorm.DB
}

func (r *connectAccountRepository) GetByUser(ctx context.Context, userID uuid.UUID) (domain.ConnectAccount, error) {
	var rec connectAccountModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ConnectAccount{}, domain.ErrAccountNotReady
		}
		return domain.ConnectAccount{}, err
	}
	return toDomainAccount(rec), nil
}
