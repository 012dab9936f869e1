package flows

import (
	"context"
	"errors"
)

// SignInFailureKind classifies sign-in failures. Lookup and mismatch both
// surface as invalid credentials.
type SignInFailureKind int

const (
	SignInFailureNone SignInFailureKind = iota
	SignInFailureInput
	SignInFailureLookup
	SignInFailureMismatch
	SignInFailureStore
	SignInFailureIssue
)

// Credential is the flow-local view of an account needed to check a
// password.
type Credential struct {
	AccountID    string
	PasswordHash string
}

// SignInResult carries either the issued token pair or failure metadata.
type SignInResult struct {
	Failure      SignInFailureKind
	Err          error
	AccountID    string
	Upgraded     bool
	AccessToken  string
	RefreshToken string
}

// SignInDeps captures sign-in dependencies.
type SignInDeps struct {
	LookupCredential func(ctx context.Context, username string) (Credential, error)
	// IsNotFound reports whether a LookupCredential error means the account
	// does not exist, as opposed to a storage failure.
	IsNotFound func(error) bool
	Compare    func(plaintext, digest string) (bool, error)
	// DummyDigest is compared against when the account is missing so both
	// paths pay for one hash evaluation.
	DummyDigest string

	UpgradeOnSignIn bool
	NeedsRehash     func(digest string) bool
	// UpgradeHash re-hashes plaintext and persists it for accountID.
	UpgradeHash func(ctx context.Context, accountID, plaintext string) error
	Warn        func(string, error)

	IssueTokens func(ctx context.Context, accountID string) (access, refresh string, err error)
}

var errEmptyCredentials = errors.New("username and password are required")

// RunSignIn checks username/password and issues a token pair.
func RunSignIn(ctx context.Context, username, password string, deps SignInDeps) SignInResult {
	if username == "" || password == "" {
		return SignInResult{
			Failure: SignInFailureInput,
			Err:     errEmptyCredentials,
		}
	}

	cred, err := deps.LookupCredential(ctx, username)
	if err != nil {
		if deps.IsNotFound != nil && !deps.IsNotFound(err) {
			return SignInResult{
				Failure: SignInFailureStore,
				Err:     err,
			}
		}
		if deps.DummyDigest != "" {
			_, _ = deps.Compare(password, deps.DummyDigest)
		}
		return SignInResult{
			Failure: SignInFailureLookup,
			Err:     err,
		}
	}

	ok, err := deps.Compare(password, cred.PasswordHash)
	if err != nil || !ok {
		if err == nil {
			err = errors.New("password mismatch")
		}
		return SignInResult{
			Failure:   SignInFailureMismatch,
			Err:       err,
			AccountID: cred.AccountID,
		}
	}

	upgraded := false
	if deps.UpgradeOnSignIn && deps.NeedsRehash != nil && deps.UpgradeHash != nil && deps.NeedsRehash(cred.PasswordHash) {
		// Upgrade failures never fail an otherwise valid sign-in.
		if err := deps.UpgradeHash(ctx, cred.AccountID, password); err != nil {
			if deps.Warn != nil {
				deps.Warn("password hash upgrade failed", err)
			}
		} else {
			upgraded = true
		}
	}

	access, refresh, err := deps.IssueTokens(ctx, cred.AccountID)
	if err != nil {
		return SignInResult{
			Failure:   SignInFailureIssue,
			Err:       err,
			AccountID: cred.AccountID,
			Upgraded:  upgraded,
		}
	}

	return SignInResult{
		Failure:      SignInFailureNone,
		AccountID:    cred.AccountID,
		Upgraded:     upgraded,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
