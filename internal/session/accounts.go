package session

import (
	"context"
	"database/sql"
	"errors"

	"hallynk/internal/store"
)

// StoreAccounts reads accounts straight from the database.
type StoreAccounts struct {
	Store *store.Store
}

func (s StoreAccounts) AccountByID(ctx context.Context, id int64) (Account, error) {
	u, err := s.Store.GetUserByID(ctx, id)
	return accountFromUser(u, err)
}

func (s StoreAccounts) AccountByEmail(ctx context.Context, email string) (Account, error) {
	u, err := s.Store.GetUserByEmail(ctx, email)
	return accountFromUser(u, err)
}

func accountFromUser(u store.User, err error) (Account, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNoAccount
		}
		return Account{}, err
	}
	return Account{
		ID:             u.ID,
		Email:          u.Email,
		Role:           u.Role,
		Disabled:       u.Status != store.UserStatusActive,
		SessionVersion: u.SessionVersion,
	}, nil
}
