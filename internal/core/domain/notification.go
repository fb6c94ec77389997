package domain

import "github.com/google/uuid"

// NotificationKind identifies an advisory condition.
type NotificationKind string

const (
	NotificationFundsLow              NotificationKind = "FUNDS_LOW"
	NotificationApproachingPayInLimit NotificationKind = "APPROACHING_PAY_IN_LIMIT"
)

// Notification is a dispatch decision captured from committed state. It is
// plain data so it can be computed inside an attempt and sent after it.
type Notification struct {
	Kind      NotificationKind
	AccountID uuid.UUID
	Address   string
}

// FundsLowNotice returns a funds-low notification if a's balance is under the
// threshold and its owner can be reached.
func FundsLowNotice(a *Account) (Notification, bool) {
	if !a.IsFundsLow() || !a.Owner.HasContactAddress() {
		return Notification{}, false
	}
	return Notification{Kind: NotificationFundsLow, AccountID: a.ID, Address: a.Owner.Email}, true
}

// PayInLimitNotice returns an approaching-pay-in-limit notification if a has
// little headroom left and its owner can be reached.
func PayInLimitNotice(a *Account) (Notification, bool) {
	if !a.IsApproachingPayInLimit() || !a.Owner.HasContactAddress() {
		return Notification{}, false
	}
	return Notification{Kind: NotificationApproachingPayInLimit, AccountID: a.ID, Address: a.Owner.Email}, true
}
