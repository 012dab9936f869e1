package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goIAM/refresh"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
// Every kind other than RefreshFailureNone surfaces to callers as the same
// unauthorized error.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureVerify
	RefreshFailureAccount
	RefreshFailureSessionUnknown
	RefreshFailureReplay
	RefreshFailureStore
	RefreshFailureIssue
)

func (k RefreshFailureKind) String() string {
	switch k {
	case RefreshFailureNone:
		return "none"
	case RefreshFailureVerify:
		return "verify"
	case RefreshFailureAccount:
		return "account"
	case RefreshFailureSessionUnknown:
		return "session_unknown"
	case RefreshFailureReplay:
		return "replay"
	case RefreshFailureStore:
		return "store"
	case RefreshFailureIssue:
		return "issue"
	default:
		return "unknown"
	}
}

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	AccountID    string
	TokenID      string
	ReplayCount  int64
	AccessToken  string
	RefreshToken string
}

type RefreshTokenStore interface {
	Consume(ctx context.Context, accountID, tokenID string) (refresh.Status, error)
	TrackReplay(ctx context.Context, accountID string, window time.Duration) (int64, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	// VerifyRefreshToken returns the subject and refresh-token id of a
	// signature-valid, unexpired refresh token.
	VerifyRefreshToken func(string) (accountID, tokenID string, err error)
	// LoadAccount fails when the subject no longer exists.
	LoadAccount func(ctx context.Context, accountID string) error
	// IssueTokens signs a new pair and stores its refresh-token id.
	IssueTokens func(ctx context.Context, accountID string) (access, refresh string, err error)

	Store                RefreshTokenStore
	EnableReplayTracking bool
	ReplayWindow         time.Duration
	Warn                 func(string, error)
}

// RunRefresh verifies refreshToken, atomically consumes its id and issues a
// rotated pair. A replayed id leaves the account without a live refresh id.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	accountID, tokenID, err := deps.VerifyRefreshToken(refreshToken)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureVerify,
			Err:     err,
		}
	}

	if err := deps.LoadAccount(ctx, accountID); err != nil {
		return RefreshResult{
			Failure:   RefreshFailureAccount,
			Err:       err,
			AccountID: accountID,
			TokenID:   tokenID,
		}
	}

	status, err := deps.Store.Consume(ctx, accountID, tokenID)
	if err != nil {
		return RefreshResult{
			Failure:   RefreshFailureStore,
			Err:       err,
			AccountID: accountID,
			TokenID:   tokenID,
		}
	}

	switch status {
	case refresh.StatusValid:
	case refresh.StatusReplayed:
		res := RefreshResult{
			Failure:   RefreshFailureReplay,
			Err:       errors.New("refresh token id superseded"),
			AccountID: accountID,
			TokenID:   tokenID,
		}
		if deps.EnableReplayTracking {
			count, trackErr := deps.Store.TrackReplay(ctx, accountID, deps.ReplayWindow)
			if trackErr != nil && deps.Warn != nil {
				deps.Warn("replay anomaly tracking failed", trackErr)
			}
			res.ReplayCount = count
		}
		return res
	default:
		return RefreshResult{
			Failure:   RefreshFailureSessionUnknown,
			Err:       errors.New("no live refresh token id"),
			AccountID: accountID,
			TokenID:   tokenID,
		}
	}

	access, next, err := deps.IssueTokens(ctx, accountID)
	if err != nil {
		return RefreshResult{
			Failure:   RefreshFailureIssue,
			Err:       err,
			AccountID: accountID,
			TokenID:   tokenID,
		}
	}

	return RefreshResult{
		Failure:      RefreshFailureNone,
		AccountID:    accountID,
		TokenID:      tokenID,
		AccessToken:  access,
		RefreshToken: next,
	}
}
