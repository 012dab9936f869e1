package goIAM

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goIAM/internal/audit"
	"github.com/MrEthical07/goIAM/jwt"
	"github.com/MrEthical07/goIAM/password"
	"github.com/MrEthical07/goIAM/refresh"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	refreshStore RefreshTokenStore
	accountStore AccountStore
	auditSink    AuditSink
	logger       *zap.Logger
	clock        func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs the refresh-token store with client. Ignored when
// WithRefreshStore is also set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithRefreshStore(store RefreshTokenStore) *Builder {
	b.refreshStore = store
	return b
}

func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accountStore = store
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces the time source for token stamps and record
// timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.accountStore == nil {
		return nil, errors.New("account store required")
	}

	refreshStore := b.refreshStore
	if refreshStore == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or refresh store required")
		}
		refreshStore = refresh.NewStore(b.redis, cfg.Refresh.RedisPrefix, cfg.JWT.RefreshTTL)
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// -------- TOKEN SIGNER --------
	var signerOpts []jwt.Option
	if b.clock != nil {
		signerOpts = append(signerOpts, jwt.WithClock(b.clock))
	}
	signer, err := jwt.NewSigner(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		Secret:        cloneBytes(cfg.JWT.Secret),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
	}, signerOpts...)
	if err != nil {
		return nil, err
	}

	// -------- PASSWORD VERIFIER --------
	verifier, err := newPasswordVerifier(cfg.Password)
	if err != nil {
		return nil, err
	}
	dummy, err := verifier.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy digest: %w", err)
	}

	engine := &Engine{
		config:      cfg,
		signer:      signer,
		refresh:     refreshStore,
		accounts:    b.accountStore,
		verifier:    verifier,
		dummyDigest: dummy,
		metrics:     NewMetrics(cfg.Metrics),
		logger:      logger.Named("goiam"),
		clock:       b.clock,
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		OnDrop:     engine.auditDropped,
	}, b.auditSink)

	b.built = true

	return engine, nil
}

// newPasswordVerifier hashes with the configured algorithm and keeps the
// other one as legacy so existing digests still verify.
func newPasswordVerifier(cfg PasswordConfig) (*password.Verifier, error) {
	argon, err := password.NewArgon2(password.Argon2Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	bc, err := password.NewBcrypt(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	if cfg.Algorithm == "bcrypt" {
		return password.NewVerifier(bc, argon)
	}
	return password.NewVerifier(argon, bc)
}
