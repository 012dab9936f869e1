package goIAM

import (
	"context"
	"errors"
	"fmt"
)

// ChangePassword replaces the password after checking the current one and
// issues a new token pair, which supersedes the previous refresh token. A
// missing account and a wrong current password both return
// ErrInvalidCredentials and leave the stored hash untouched.
func (e *Engine) ChangePassword(ctx context.Context, accountID, current, next string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if current == "" || next == "" {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, accountID, ErrInvalidInput, reason("invalid_input"))
		return nil, ErrInvalidInput
	}

	var account *Account
	var err error
	if accountID == "" {
		err = ErrAccountNotFound
	} else {
		account, err = e.accounts.FindByID(ctx, accountID)
	}
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricPasswordChangeInvalidOld)
			e.emitAudit(ctx, auditEventPasswordChangeInvalid, false, accountID, ErrInvalidCredentials, reason("account_not_found"))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("change password: %w", err)
	}

	ok, err := e.verifier.Compare(current, account.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditEventPasswordChangeInvalid, false, accountID, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	digest, err := e.verifier.Hash(next)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, accountID, ErrInvalidInput, reason("hash_policy"))
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	updated := *account
	updated.PasswordHash = digest
	updated.UpdatedAt = e.now().UTC()
	if err := e.accounts.Save(ctx, &updated); err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, accountID, err, reason("save_failed"))
		return nil, fmt.Errorf("change password: %w", err)
	}

	pair, err := e.GenerateTokens(ctx, &updated)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, accountID, err, reason("issue_tokens"))
		return nil, fmt.Errorf("change password: %w", err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, accountID, nil, nil)
	return pair, nil
}
