package balance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixelotes/Tempus/internal/subject"
)

// ApplyDebit charges days against the subject's account for the given year,
// creating the account on first touch seeded with the subject's base
// entitlement. Negative days are a credit. Callers are expected to run this
// inside the transaction that resolves the request; the row lock holds until
// that transaction ends.
func ApplyDebit(ctx context.Context, accounts Repository, subjects subject.Repository, subjectID uuid.UUID, year int, days int) (*Account, error) {
	a, err := accounts.FindForUpdate(ctx, subjectID.String(), year)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		sub, err := subjects.FindByID(ctx, subjectID.String())
		if err != nil {
			return nil, err
		}

		a = &Account{
			ID:        uuid.New(),
			SubjectID: subjectID,
			Year:      year,
			TotalDays: sub.BaseEntitlementDays,
		}
		if err := accounts.Create(ctx, a); err != nil {
			return nil, err
		}
	}

	a.ConsumedDays += days
	if err := accounts.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ProjectedAvailable reports the available days a settlement would see,
// without locking. Missing account means nothing consumed yet against the
// base entitlement.
func ProjectedAvailable(ctx context.Context, accounts Repository, subjects subject.Repository, subjectID uuid.UUID, year int) (int, error) {
	a, err := accounts.Find(ctx, subjectID.String(), year)
	if err == nil {
		return a.Available(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	sub, err := subjects.FindByID(ctx, subjectID.String())
	if err != nil {
		return 0, err
	}
	return sub.BaseEntitlementDays, nil
}
