package goIAM

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SignUp creates a Regular account. Uniqueness of username and email is
// left to the store; a clash returns ErrDuplicateAccount.
func (e *Engine) SignUp(ctx context.Context, in SignUpInput) (*Profile, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		e.metricInc(MetricSignUpFailure)
		e.emitAudit(ctx, auditEventSignUpFailure, false, "", ErrInvalidInput, reason("invalid_input"))
		return nil, ErrInvalidInput
	}

	digest, err := e.verifier.Hash(in.Password)
	if err != nil {
		e.metricInc(MetricSignUpFailure)
		e.emitAudit(ctx, auditEventSignUpFailure, false, "", ErrInvalidInput, reason("hash_policy"))
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		e.metricInc(MetricSignUpFailure)
		return nil, fmt.Errorf("generate account id: %w", err)
	}

	now := e.now().UTC()
	account := &Account{
		ID:           id.String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: digest,
		Role:         RoleRegular,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := e.accounts.Save(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			e.metricInc(MetricSignUpDuplicate)
			e.emitAudit(ctx, auditEventSignUpDuplicate, false, "", ErrDuplicateAccount, nil)
			return nil, ErrDuplicateAccount
		}
		e.metricInc(MetricSignUpFailure)
		e.emitAudit(ctx, auditEventSignUpFailure, false, "", err, reason("save_failed"))
		return nil, fmt.Errorf("sign up: %w", err)
	}

	e.metricInc(MetricSignUpSuccess)
	e.emitAudit(ctx, auditEventSignUpSuccess, true, account.ID, nil, nil)
	return account.profile(), nil
}

// DeleteAccount removes the account and its live refresh token.
func (e *Engine) DeleteAccount(ctx context.Context, accountID string) error {
	return e.removeAccount(ctx, accountID, auditEventAccountDeleted)
}

// RemoveAccount is the administrator variant of DeleteAccount.
func (e *Engine) RemoveAccount(ctx context.Context, accountID string) error {
	return e.removeAccount(ctx, accountID, auditEventAccountRemovedByAdmin)
}

func (e *Engine) removeAccount(ctx context.Context, accountID, eventType string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if accountID == "" {
		return ErrNotFound
	}

	if err := e.accounts.Remove(ctx, accountID); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrNotFound
		}
		e.emitAudit(ctx, eventType, false, accountID, err, reason("remove_failed"))
		return fmt.Errorf("delete account: %w", err)
	}

	// The record is gone, so a surviving refresh id can no longer load an
	// account; invalidation failure is logged and not returned.
	if err := e.refresh.Invalidate(ctx, accountID); err != nil {
		e.warn("refresh token invalidation failed after account removal", err)
	} else {
		e.metricInc(MetricSessionInvalidated)
	}

	e.metricInc(MetricAccountDeleted)
	e.emitAudit(ctx, eventType, true, accountID, nil, nil)
	return nil
}

func (e *Engine) findAccount(ctx context.Context, accountID string) (*Account, error) {
	if accountID == "" {
		return nil, ErrNotFound
	}
	a, err := e.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return a, nil
}

// GetMe returns the caller's profile.
func (e *Engine) GetMe(ctx context.Context, accountID string) (*Profile, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	a, err := e.findAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return a.profile(), nil
}

// EditMe applies patch to the caller's account. Each provided field
// overwrites independently; an empty patch returns the profile unchanged.
func (e *Engine) EditMe(ctx context.Context, accountID string, patch AccountPatch) (*Profile, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	a, err := e.findAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if !patch.apply(a) {
		return a.profile(), nil
	}
	a.UpdatedAt = e.now().UTC()

	if err := e.accounts.Save(ctx, a); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			e.emitAudit(ctx, auditEventAccountUpdateDuplicate, false, accountID, ErrDuplicateAccount, nil)
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("update account: %w", err)
	}

	e.metricInc(MetricAccountUpdated)
	e.emitAudit(ctx, auditEventAccountUpdated, true, accountID, nil, nil)
	return a.profile(), nil
}

// ListAccounts returns every account in the administrative summary shape.
func (e *Engine) ListAccounts(ctx context.Context) ([]AccountSummary, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	accounts, err := e.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]AccountSummary, 0, len(accounts))
	for i := range accounts {
		out = append(out, accounts[i].summary())
	}
	return out, nil
}

// GetAccount returns the administrative summary of one account.
func (e *Engine) GetAccount(ctx context.Context, accountID string) (*AccountSummary, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	a, err := e.findAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	s := a.summary()
	return &s, nil
}
