package goIAM

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goIAM/internal/audit"
	internalflows "github.com/MrEthical07/goIAM/internal/flows"
	"github.com/MrEthical07/goIAM/jwt"
	"github.com/MrEthical07/goIAM/password"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine is the authentication service. It is built once by Builder and is
// safe for concurrent use; the only mutable state it owns is the audit
// buffer and the metric counters.
type Engine struct {
	config      Config
	signer      *jwt.Signer
	refresh     RefreshTokenStore
	accounts    AccountStore
	verifier    *password.Verifier
	dummyDigest string
	audit       *audit.Dispatcher
	metrics     *Metrics
	logger      *zap.Logger
	clock       func() time.Time
}

// Close drains buffered audit events. The Engine does not own the Redis
// client or the account store and leaves them open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

// AuditDropped reports how many audit events were discarded on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType breaks AuditDropped down by event type.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

// MetricsSnapshot returns the current counters, empty when metrics are off.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Ping checks the refresh store round trip.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.refresh == nil {
		return 0, ErrEngineNotReady
	}
	return e.refresh.Ping(ctx)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(msg string, err error) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Warn(msg, zap.Error(err))
}

func (e *Engine) ready() bool {
	return e != nil && e.signer != nil && e.refresh != nil && e.accounts != nil && e.verifier != nil
}

// SignIn checks username and password and issues a fresh token pair. An
// unknown username and a wrong password both return ErrInvalidCredentials.
func (e *Engine) SignIn(ctx context.Context, username, plaintext string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	var account *Account
	res := internalflows.RunSignIn(ctx, username, plaintext, internalflows.SignInDeps{
		LookupCredential: func(ctx context.Context, username string) (internalflows.Credential, error) {
			a, err := e.accounts.FindByUsername(ctx, username)
			if err != nil {
				return internalflows.Credential{}, err
			}
			account = a
			return internalflows.Credential{AccountID: a.ID, PasswordHash: a.PasswordHash}, nil
		},
		IsNotFound: func(err error) bool {
			return errors.Is(err, ErrAccountNotFound)
		},
		Compare:         e.verifier.Compare,
		DummyDigest:     e.dummyDigest,
		UpgradeOnSignIn: e.config.Password.UpgradeOnSignIn,
		NeedsRehash: func(digest string) bool {
			stale, err := e.verifier.NeedsRehash(digest)
			return err == nil && stale
		},
		UpgradeHash: func(ctx context.Context, _ string, plaintext string) error {
			digest, err := e.verifier.Hash(plaintext)
			if err != nil {
				return err
			}
			updated := *account
			updated.PasswordHash = digest
			updated.UpdatedAt = e.now().UTC()
			if err := e.accounts.Save(ctx, &updated); err != nil {
				return err
			}
			account = &updated
			return nil
		},
		Warn: e.warn,
		IssueTokens: func(ctx context.Context, _ string) (string, string, error) {
			pair, err := e.GenerateTokens(ctx, account)
			if err != nil {
				return "", "", err
			}
			return pair.AccessToken, pair.RefreshToken, nil
		},
	})

	switch res.Failure {
	case internalflows.SignInFailureNone:
		if res.Upgraded {
			e.metricInc(MetricPasswordHashUpgraded)
			e.emitAudit(ctx, auditEventPasswordHashUpgraded, true, res.AccountID, nil, nil)
		}
		e.metricInc(MetricSignInSuccess)
		e.emitAudit(ctx, auditEventSignInSuccess, true, res.AccountID, nil, nil)
		return &TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil
	case internalflows.SignInFailureInput, internalflows.SignInFailureLookup, internalflows.SignInFailureMismatch:
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, auditEventSignInFailure, false, res.AccountID, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	case internalflows.SignInFailureStore:
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, auditEventSignInFailure, false, "", res.Err, reason("account_lookup"))
		return nil, fmt.Errorf("sign in: %w", res.Err)
	default:
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, auditEventSignInFailure, false, res.AccountID, res.Err, reason("issue_tokens"))
		return nil, fmt.Errorf("sign in: %w", res.Err)
	}
}

// GenerateTokens signs an access/refresh pair for account and records the
// new refresh-token id as the account's only live one. Nothing is stored
// unless both tokens were signed.
func (e *Engine) GenerateTokens(ctx context.Context, account *Account) (*TokenPair, error) {
	if e == nil || e.signer == nil || e.refresh == nil {
		return nil, ErrEngineNotReady
	}
	if account == nil || account.ID == "" {
		return nil, ErrInvalidInput
	}

	tokenID, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token id: %w", err)
	}

	var pair TokenPair
	var refreshExpiry time.Time
	var g errgroup.Group
	g.Go(func() error {
		tok, err := e.signer.SignAccess(account.ID, e.config.JWT.AccessTTL, jwt.AccessClaims{
			Username: account.Username,
			Email:    account.Email,
			Role:     string(account.Role),
		})
		pair.AccessToken = tok
		return err
	})
	g.Go(func() error {
		tok, exp, err := e.signer.SignRefreshWithExpiry(account.ID, e.config.JWT.RefreshTTL, tokenID.String())
		pair.RefreshToken = tok
		refreshExpiry = exp
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sign tokens: %w", err)
	}

	if err := e.refresh.InsertUntil(ctx, account.ID, tokenID.String(), refreshExpiry); err != nil {
		return nil, err
	}

	e.metricInc(MetricTokensIssued)
	return &pair, nil
}

// RefreshTokens rotates a refresh token. Every failure, a replay of an
// already rotated token included, returns ErrUnauthorized; a replay also
// leaves the account without any live refresh token.
func (e *Engine) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.Observe(MetricRefreshLatency, time.Since(start))
		}
	}()

	var account *Account
	res := internalflows.RunRefresh(ctx, refreshToken, internalflows.RefreshDeps{
		VerifyRefreshToken: func(token string) (string, string, error) {
			claims, err := e.signer.VerifyRefresh(token)
			if err != nil {
				return "", "", err
			}
			return claims.Subject, claims.RefreshTokenID, nil
		},
		LoadAccount: func(ctx context.Context, accountID string) error {
			a, err := e.accounts.FindByID(ctx, accountID)
			if err != nil {
				return err
			}
			account = a
			return nil
		},
		IssueTokens: func(ctx context.Context, _ string) (string, string, error) {
			pair, err := e.GenerateTokens(ctx, account)
			if err != nil {
				return "", "", err
			}
			return pair.AccessToken, pair.RefreshToken, nil
		},
		Store:                e.refresh,
		EnableReplayTracking: e.config.Refresh.EnableReplayTracking,
		ReplayWindow:         e.config.Refresh.ReplayWindow,
		Warn:                 e.warn,
	})

	switch res.Failure {
	case internalflows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.AccountID, nil, nil)
		return &TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil

	case internalflows.RefreshFailureReplay:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshReuseDetected)
		e.metricInc(MetricSessionInvalidated)
		if e.logger != nil {
			e.logger.Warn("refresh token reuse detected",
				zap.String("account_id", res.AccountID),
				zap.Int64("replay_count", res.ReplayCount),
			)
		}
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, res.AccountID, errRefreshReuse, func() map[string]string {
			if res.ReplayCount == 0 {
				return nil
			}
			return map[string]string{"replay_count": fmt.Sprint(res.ReplayCount)}
		})

	case internalflows.RefreshFailureVerify:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricTokenVerifyFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", res.Err, reason(res.Failure.String()))

	case internalflows.RefreshFailureSessionUnknown:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshSessionUnknown)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.AccountID, errSessionUnknown, reason(res.Failure.String()))

	default:
		e.metricInc(MetricRefreshFailure)
		if res.Failure != internalflows.RefreshFailureAccount {
			e.warn("refresh failed", res.Err)
		}
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.AccountID, res.Err, reason(res.Failure.String()))
	}

	return nil, ErrUnauthorized
}

// VerifyAccess validates an access token and returns the identity it
// carries. Any failure returns ErrUnauthorized.
func (e *Engine) VerifyAccess(ctx context.Context, accessToken string) (*ActiveUser, error) {
	if e == nil || e.signer == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.signer.VerifyAccess(accessToken)
	if err != nil {
		e.metricInc(MetricTokenVerifyFailure)
		return nil, ErrUnauthorized
	}

	role := Role(claims.Role)
	if !role.Valid() {
		e.metricInc(MetricTokenVerifyFailure)
		return nil, ErrUnauthorized
	}

	return &ActiveUser{
		ID:       claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     role,
	}, nil
}
