package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/rytkhs/event-pay-sub006/internal/ports"
)

type Repositories struct {
	Payouts       ports.PayoutRepository
	FeeConfig     ports.FeeConfigRepository
	Events        ports.EventRepository
	Accounts      ports.ConnectAccountReader
	SchedulerLogs ports.SchedulerLogRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Payouts:       &payoutRepository{db: db},
		FeeConfig:     &feeConfigRepository{db: db},
		Events:        &eventRepository{db: db},
		Accounts:      &connectAccountRepository{db: db},
		SchedulerLogs: &schedulerLogRepository{db: db},
	}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
