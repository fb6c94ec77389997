package notify

import (
	"context"
	"errors"

	"account-transfer-service/internal/core/ports"
)

// Multi fans a notification out to every notifier and joins their errors.
type Multi []ports.Notifier

func (m Multi) NotifyFundsLow(ctx context.Context, address string) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyFundsLow(ctx, address); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) NotifyApproachingPayInLimit(ctx context.Context, address string) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyApproachingPayInLimit(ctx, address); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
