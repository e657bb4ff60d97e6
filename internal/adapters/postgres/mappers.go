package postgres

import (
	"encoding/json"

	"github.com/rytkhs/event-pay-sub006/internal/domain"
)

func toPayoutModel(p domain.Payout) payoutModel {
	return payoutModel{
		PayoutID:         p.PayoutID,
		EventID:          p.EventID,
		UserID:           p.UserID,
		GrossSales:       p.GrossSales,
		ProcessorFee:     p.ProcessorFee,
		PlatformFee:      p.PlatformFee,
		NetAmount:        p.NetAmount,
		Status:           string(p.Status),
		StripeTransferID: p.StripeTransferID,
		StripeAccountID:  p.StripeAccountID,
		TransferGroup:    p.TransferGroup,
		RetryCount:       p.RetryCount,
		LastError:        p.LastError,
		Notes:            p.Notes,
		ProcessedAt:      p.ProcessedAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func toDomainPayout(row payoutModel) domain.Payout {
	return domain.Payout{
		PayoutID:         row.PayoutID,
		EventID:          row.EventID,
		UserID:           row.UserID,
		GrossSales:       row.GrossSales,
		ProcessorFee:     row.ProcessorFee,
		PlatformFee:      row.PlatformFee,
		NetAmount:        row.NetAmount,
		Status:           domain.PayoutStatus(row.Status),
		StripeTransferID: row.StripeTransferID,
		StripeAccountID:  row.StripeAccountID,
		TransferGroup:    row.TransferGroup,
		RetryCount:       row.RetryCount,
		LastError:        row.LastError,
		Notes:            row.Notes,
		ProcessedAt:      row.ProcessedAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func toDomainAccount(row connectAccountModel) domain.ConnectAccount {
	return domain.ConnectAccount{
		UserID:          row.UserID,
		AccountID:       row.StripeAccountID,
		Verified:        row.Verified,
		PayoutsEnabled:  row.PayoutsEnabled,
		DefaultCurrency: row.DefaultCurrency,
	}
}

func toSchedulerLogModel(result domain.SchedulerExecutionResult) (schedulerLogModel, error) {
	results, err := json.Marshal(result.Results)
	if err != nil {
		return schedulerLogModel{}, err
	}
	rec := schedulerLogModel{
		ExecutionID:   result.ExecutionID,
		StartedAt:     result.StartedAt,
		FinishedAt:    result.FinishedAt,
		DryRun:        result.DryRun,
		EligibleCount: result.EligibleCount,
		SuccessCount:  result.SuccessCount,
		FailureCount:  result.FailureCount,
		TotalAmount:   result.TotalAmount,
		Results:       string(results),
		CreatedAt:     result.FinishedAt,
	}
	if result.Error != "" {
		errMsg := result.Error
		rec.Error = &errMsg
	}
	return rec, nil
}

func toDomainSchedulerLog(row schedulerLogModel) domain.SchedulerExecutionResult {
	result := domain.SchedulerExecutionResult{
		ExecutionID:   row.ExecutionID,
		StartedAt:     row.StartedAt,
		FinishedAt:    row.FinishedAt,
		DryRun:        row.DryRun,
		EligibleCount: row.EligibleCount,
		SuccessCount:  row.SuccessCount,
		FailureCount:  row.FailureCount,
		TotalAmount:   row.TotalAmount,
	}
	if row.Error != nil {
		result.Error = *row.Error
	}
	// Corrupt rows keep their summary fields; per-event detail is best effort.
	_ = json.Unmarshal([]byte(row.Results), &result.Results)
	return result
}
