package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the JWS algorithm used by a Signer.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret (HMAC-SHA256).
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key and verifies with the
	// matching public key.
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrTokenInvalid is returned for every verification failure other than
	// expiry: bad signature, unexpected algorithm, issuer or audience mismatch,
	// malformed input and wrong claim shape.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned when a correctly signed token is past exp.
	ErrTokenExpired = errors.New("token expired")

	errEmptySubject = errors.New("token subject is empty")
	errInvalidTTL   = errors.New("token ttl must be > 0")
	errNilClaims    = errors.New("token claims are nil")
)

// Config holds the process-wide signing parameters. It is copied by
// NewSigner and never read again.
type Config struct {
	SigningMethod SigningMethod
	// Secret is the HMAC key for MethodHS256.
	Secret []byte
	// PrivateKey and PublicKey hold raw or PEM encoded Ed25519 keys for
	// MethodEd25519. A verify-only signer may omit PrivateKey.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
	KeyID      string
}

// Option customizes a Signer.
type Option func(*Signer)

// WithClock replaces the time source used to stamp iat/exp and to check
// expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// Signer signs and verifies compact JWTs bound to one issuer, one audience
// and one key. It is safe for concurrent use.
type Signer struct {
	config    Config
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	parser    *jwt.Parser
	now       func() time.Time
}

// NewSigner validates cfg and returns a ready Signer.
func NewSigner(cfg Config, opts ...Option) (*Signer, error) {
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	if cfg.Issuer == "" {
		return nil, errors.New("jwt issuer is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("jwt audience is required")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	s := &Signer{now: time.Now}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) < 16 {
			return nil, errors.New("hs256 secret must be at least 16 bytes")
		}
		cfg.Secret = append([]byte(nil), cfg.Secret...)
		s.method = jwt.SigningMethodHS256
		s.signKey = cfg.Secret
		s.verifyKey = cfg.Secret
	case MethodEd25519:
		s.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			s.signKey = priv
			s.verifyKey = priv.Public()
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			s.verifyKey = pub
		}
		if s.verifyKey == nil {
			return nil, errors.New("ed25519 requires a private or public key")
		}
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}
	cfg.PrivateKey = nil
	cfg.PublicKey = nil
	s.config = cfg

	for _, opt := range opts {
		opt(s)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	s.parser = jwt.NewParser(options...)

	return s, nil
}

// Sign stamps sub, iss, aud, iat and exp = now+ttl onto claims and returns the
// signed compact token.
func (s *Signer) Sign(subject string, ttl time.Duration, claims Claims) (string, error) {
	token, _, err := s.sign(subject, ttl, claims)
	return token, err
}

func (s *Signer) sign(subject string, ttl time.Duration, claims Claims) (string, time.Time, error) {
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, errEmptySubject
	}
	if ttl <= 0 {
		return "", time.Time{}, errInvalidTTL
	}
	if claims == nil {
		return "", time.Time{}, errNilClaims
	}
	if s.signKey == nil {
		return "", time.Time{}, errors.New("signer has no private key")
	}

	now := s.now()
	rc := claims.registered()
	rc.Subject = subject
	rc.Issuer = s.config.Issuer
	rc.Audience = jwt.ClaimStrings{s.config.Audience}
	rc.IssuedAt = jwt.NewNumericDate(now)
	rc.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(s.method, claims)
	if s.config.KeyID != "" {
		token.Header["kid"] = s.config.KeyID
	}

	signed, err := token.SignedString(s.signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	// NewNumericDate truncates to jwt.TimePrecision, so this is the encoded exp.
	return signed, rc.ExpiresAt.Time, nil
}

// Verify parses token into claims. Expired tokens fail with ErrTokenExpired,
// everything else with an error wrapping ErrTokenInvalid.
func (s *Signer) Verify(token string, claims Claims) error {
	if token == "" || claims == nil {
		return ErrTokenInvalid
	}

	parsed, err := s.parser.ParseWithClaims(token, claims, s.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return ErrTokenInvalid
	}
	if claims.registered().Subject == "" {
		return fmt.Errorf("%w: %v", ErrTokenInvalid, errEmptySubject)
	}

	return nil
}

// SignAccess signs an access token for subject carrying the identity claims.
func (s *Signer) SignAccess(subject string, ttl time.Duration, claims AccessClaims) (string, error) {
	return s.Sign(subject, ttl, &claims)
}

// SignRefresh signs a refresh token carrying only subject and refreshTokenID.
func (s *Signer) SignRefresh(subject string, ttl time.Duration, refreshTokenID string) (string, error) {
	token, _, err := s.SignRefreshWithExpiry(subject, ttl, refreshTokenID)
	return token, err
}

// SignRefreshWithExpiry is SignRefresh that also returns the exp claim as
// encoded in the token.
func (s *Signer) SignRefreshWithExpiry(subject string, ttl time.Duration, refreshTokenID string) (string, time.Time, error) {
	if refreshTokenID == "" {
		return "", time.Time{}, errMissingRefreshTokenID
	}
	return s.sign(subject, ttl, &RefreshClaims{RefreshTokenID: refreshTokenID})
}

func (s *Signer) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.Verify(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Signer) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.Verify(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Signer) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != s.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	if s.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		if kid != s.config.KeyID {
			return nil, errors.New("unknown kid")
		}
	}
	return s.verifyKey, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(append([]byte(nil), key...)), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(append([]byte(nil), key...)), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
