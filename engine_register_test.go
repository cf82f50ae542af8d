package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterVerifyLoginFlow(t *testing.T) {
	_, rdb := newTestRedis(t)
	dir := newMockDirectory()
	mailer := &recordingMailer{}
	engine := newTestEngine(t, rdb, dir, mailer)
	ctx := context.Background()

	res, err := engine.Register(ctx, RegisterRequest{
		Email:    "Alice@Example.com",
		Password: "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.Status != StatusPendingVerification {
		t.Fatalf("expected pending status, got %v", res.Status)
	}

	// Login is closed until the mailed token is redeemed.
	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse-battery"); !errors.Is(err, ErrAccountNotVerified) {
		t.Fatalf("expected ErrAccountNotVerified, got %v", err)
	}

	mail := mailer.last(t)
	if mail.To != "alice@example.com" || mail.Kind != MailVerifyEmail {
		t.Fatalf("unexpected mail: %+v", mail)
	}

	if err := engine.RedeemEmailVerification(ctx, mail.Params["token"]); err != nil {
		t.Fatalf("RedeemEmailVerification failed: %v", err)
	}
	if got := dir.get(res.UserID); got.Status != StatusActive || !got.EmailVerified {
		t.Fatalf("account not activated: %+v", got)
	}

	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse-battery"); err != nil {
		t.Fatalf("Login after verification failed: %v", err)
	}

	// The verification token is single use.
	if err := engine.RedeemEmailVerification(ctx, mail.Params["token"]); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound on replay, got %v", err)
	}
}

func TestRegisterWithoutVerificationRequirement(t *testing.T) {
	_, rdb := newTestRedis(t)
	dir := newMockDirectory()
	mailer := &recordingMailer{}
	engine := newTestEngine(t, rdb, dir, mailer, func(cfg *Config) {
		cfg.Registration.RequireVerification = false
	})
	ctx := context.Background()

	res, err := engine.Register(ctx, RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.Status != StatusActive {
		t.Fatalf("expected active status, got %v", res.Status)
	}
	if mailer.count() != 0 {
		t.Fatal("no verification mail expected")
	}

	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse-battery"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	_, rdb := newTestRedis(t)
	dir := newMockDirectory()
	engine := newTestEngine(t, rdb, dir, nil)
	ctx := context.Background()

	req := RegisterRequest{Email: "alice@example.com", Password: "correct-horse-battery"}
	if _, err := engine.Register(ctx, req); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := engine.Register(ctx, req); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine := newTestEngine(t, rdb, newMockDirectory(), nil)

	_, err := engine.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "short",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestRegisterUnknownRole(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine := newTestEngine(t, rdb, newMockDirectory(), nil)

	_, err := engine.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct-horse-battery",
		Role:     "superuser",
	})
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRequestEmailVerificationUniformResponse(t *testing.T) {
	_, rdb := newTestRedis(t)
	dir := newMockDirectory()
	mailer := &recordingMailer{}
	engine := newTestEngine(t, rdb, dir, mailer)
	ctx := context.Background()

	// Unknown email: nil, nothing sent.
	if err := engine.RequestEmailVerification(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("unknown email must return nil, got %v", err)
	}
	// Already verified: nil, nothing sent.
	seedUser(t, engine, dir, "alice@example.com", "correct-horse-battery")
	if err := engine.RequestEmailVerification(ctx, "alice@example.com"); err != nil {
		t.Fatalf("verified account must return nil, got %v", err)
	}
	if mailer.count() != 0 {
		t.Fatalf("expected no mail, got %d", mailer.count())
	}

	// Pending account: token re-issued.
	hash, _ := engine.hasher.Hash("correct-horse-battery")
	dir.put(User{
		Email:        "pending@example.com",
		PasswordHash: hash,
		Role:         "member",
		Status:       StatusPendingVerification,
	})
	if err := engine.RequestEmailVerification(ctx, "pending@example.com"); err != nil {
		t.Fatalf("RequestEmailVerification failed: %v", err)
	}
	if mailer.count() != 1 {
		t.Fatalf("expected 1 mail, got %d", mailer.count())
	}
	if err := engine.RedeemEmailVerification(ctx, mailer.last(t).Params["token"]); err != nil {
		t.Fatalf("RedeemEmailVerification failed: %v", err)
	}
}
