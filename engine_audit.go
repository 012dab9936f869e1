package goIAM

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goIAM/jwt"
	"go.uber.org/zap"
)

const (
	auditEventSignUpSuccess          = "sign_up_success"
	auditEventSignUpDuplicate        = "sign_up_duplicate"
	auditEventSignUpFailure          = "sign_up_failure"
	auditEventSignInSuccess          = "sign_in_success"
	auditEventSignInFailure          = "sign_in_failure"
	auditEventRefreshSuccess         = "refresh_success"
	auditEventRefreshInvalid         = "refresh_invalid"
	auditEventRefreshReuseDetected   = "refresh_reuse_detected"
	auditEventPasswordChangeSuccess  = "password_change_success"
	auditEventPasswordChangeInvalid  = "password_change_invalid_current"
	auditEventPasswordChangeFailure  = "password_change_failure"
	auditEventPasswordHashUpgraded   = "password_hash_upgraded"
	auditEventAccountUpdated         = "account_updated"
	auditEventAccountUpdateDuplicate = "account_update_duplicate"
	auditEventAccountDeleted         = "account_deleted"
	auditEventAccountRemovedByAdmin  = "account_removed_by_admin"
)

// AuditErrorCode is the stable, non-sensitive failure label written to
// AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRefreshReuse       AuditErrorCode = "refresh_reuse"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrExpiredToken       AuditErrorCode = "expired_token"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrAccountNotFound    AuditErrorCode = "account_not_found"
	auditErrDuplicate          AuditErrorCode = "duplicate_account"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrUnavailable        AuditErrorCode = "unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

var errRefreshReuse = errors.New("refresh token reuse")
var errSessionUnknown = errors.New("no live refresh token")

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func reason(r string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"reason": r}
	}
}

func (e *Engine) now() time.Time {
	if e != nil && e.clock != nil {
		return e.clock()
	}
	return time.Now()
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, errRefreshReuse):
		return auditErrRefreshReuse
	case errors.Is(err, errSessionUnknown):
		return auditErrSessionNotFound
	case errors.Is(err, jwt.ErrTokenExpired):
		return auditErrExpiredToken
	case errors.Is(err, jwt.ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrDuplicateAccount), errors.Is(err, ErrDuplicateKey):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrRedisUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

// auditDropped runs on the emitting goroutine when the dispatcher sheds an
// event. Failures tied to an account are logged so a replay or a run of bad
// passwords is never lost silently.
func (e *Engine) auditDropped(event AuditEvent) {
	if event.Success || event.AccountID == "" {
		return
	}
	e.logger.Warn("audit event dropped",
		zap.String("event_type", event.EventType),
		zap.String("account_id", event.AccountID),
		zap.String("error", event.Error),
	)
}
