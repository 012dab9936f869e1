package goIAM

import (
	"context"
	"testing"
)

func newBenchmarkEngine(b *testing.B) (*Engine, func()) {
	b.Helper()

	mr, rdb := newTestRedis(b)
	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithAccountStore(newMemAccountStore()).
		Build()
	if err != nil {
		mr.Close()
		b.Fatalf("Build failed: %v", err)
	}

	if _, err := engine.SignUp(context.Background(), SignUpInput{
		Username: "alice01",
		Email:    "alice01@example.com",
		Password: "secret123",
	}); err != nil {
		b.Fatalf("SignUp failed: %v", err)
	}

	return engine, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func BenchmarkVerifyAccess(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b)
	defer cleanup()

	pair, err := engine.SignIn(context.Background(), "alice01", "secret123")
	if err != nil {
		b.Fatalf("SignIn failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.VerifyAccess(context.Background(), pair.AccessToken); err != nil {
			b.Fatalf("VerifyAccess failed: %v", err)
		}
	}
}

func BenchmarkRefreshTokens(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b)
	defer cleanup()

	pair, err := engine.SignIn(context.Background(), "alice01", "secret123")
	if err != nil {
		b.Fatalf("SignIn failed: %v", err)
	}
	refresh := pair.RefreshToken

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next, err := engine.RefreshTokens(context.Background(), refresh)
		if err != nil {
			b.Fatalf("RefreshTokens failed: %v", err)
		}
		refresh = next.RefreshToken
	}
}
