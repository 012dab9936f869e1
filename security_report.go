package goIAM

import "time"

// SecurityReport summarizes the security-relevant settings an Engine was
// built with. It never includes key material.
type SecurityReport struct {
	SigningAlgorithm      string
	Issuer                string
	Audience              string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	Password              PasswordReport
	ReplayTrackingEnabled bool
	ReplayWindow          time.Duration
	AuditEnabled          bool
	AuditDropIfFull       bool
	MetricsEnabled        bool
}

type PasswordReport struct {
	Algorithm       string
	Memory          uint32
	Time            uint32
	Parallelism     uint8
	SaltLength      uint32
	KeyLength       uint32
	BcryptCost      int
	UpgradeOnSignIn bool
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	return SecurityReport{
		SigningAlgorithm: cfg.JWT.SigningMethod,
		Issuer:           cfg.JWT.Issuer,
		Audience:         cfg.JWT.Audience,
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		Password: PasswordReport{
			Algorithm:       cfg.Password.Algorithm,
			Memory:          cfg.Password.Memory,
			Time:            cfg.Password.Time,
			Parallelism:     cfg.Password.Parallelism,
			SaltLength:      cfg.Password.SaltLength,
			KeyLength:       cfg.Password.KeyLength,
			BcryptCost:      cfg.Password.BcryptCost,
			UpgradeOnSignIn: cfg.Password.UpgradeOnSignIn,
		},
		ReplayTrackingEnabled: cfg.Refresh.EnableReplayTracking,
		ReplayWindow:          cfg.Refresh.ReplayWindow,
		AuditEnabled:          cfg.Audit.Enabled,
		AuditDropIfFull:       cfg.Audit.DropIfFull,
		MetricsEnabled:        cfg.Metrics.Enabled,
	}
}
