package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
)

func startRegistration(t *testing.T, svc *registrationService, email string) *ports.RegistrationPending {
	t.Helper()
	pending, err := svc.Start(context.Background(), ports.RegisterInput{
		Name:     "Ada",
		Email:    email,
		Password: "correct horse",
		Company:  "Acme",
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	return pending
}

func TestRegistration_EndToEnd(t *testing.T) {
	f := newFixture()
	svc := f.registration("123456")

	pending := startRegistration(t, svc, "A@X.com")
	if pending.Email != "a@x.com" {
		t.Fatalf("expected normalised email, got %q", pending.Email)
	}
	if pending.TempData == "" {
		t.Fatalf("expected continuation data")
	}
	if _, err := f.accounts.FindByEmail(context.Background(), "a@x.com"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("account must not exist before verification, got %v", err)
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0].code != "123456" {
		t.Fatalf("expected one verification email with the code, got %+v", f.mailer.sent)
	}

	token, account, err := svc.Verify(context.Background(), ports.VerifyEmailInput{
		Email:    "a@x.com",
		Code:     "123456",
		TempData: pending.TempData,
	})
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected session token")
	}
	if account.Role != domain.RoleClient || !account.EmailVerified || account.Company != "Acme" {
		t.Fatalf("unexpected account: %+v", account)
	}
	if !passwordMatches(account.PasswordHash, "correct horse") {
		t.Fatalf("stored hash does not match password")
	}

	claims, err := f.tokens.Verify(token)
	if err != nil {
		t.Fatalf("token did not verify: %v", err)
	}
	if claims.AccountID != account.ID || claims.Role != domain.RoleClient {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if len(f.queue.sent) != 1 || f.queue.sent[0].Kind != ports.NotifyWelcome {
		t.Fatalf("expected welcome notification, got %+v", f.queue.sent)
	}
}

func TestRegistration_StartRejectsTakenEmail(t *testing.T) {
	f := newFixture()
	f.seedAccount("a@x.com", "pw")
	svc := f.registration("123456")

	_, err := svc.Start(context.Background(), ports.RegisterInput{Name: "Ada", Email: "a@x.com", Password: "password1"})
	if !errors.Is(err, domain.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if f.codes.count("a@x.com") != 0 {
		t.Fatalf("no code should be issued for a taken email")
	}
}

func TestRegistration_StartFailsWhenMailFails(t *testing.T) {
	f := newFixture()
	f.mailer.err = errors.New("smtp down")
	svc := f.registration("123456")

	if _, err := svc.Start(context.Background(), ports.RegisterInput{Name: "Ada", Email: "a@x.com", Password: "password1"}); err == nil {
		t.Fatalf("expected error when the code email cannot be sent")
	}
}

func TestRegistration_CodeUsableOnlyOnce(t *testing.T) {
	f := newFixture()
	svc := f.registration("123456")
	pending := startRegistration(t, svc, "a@x.com")
	in := ports.VerifyEmailInput{Email: "a@x.com", Code: "123456", TempData: pending.TempData}

	if _, _, err := svc.Verify(context.Background(), in); err != nil {
		t.Fatalf("first Verify failed: %v", err)
	}
	if _, _, err := svc.Verify(context.Background(), in); !errors.Is(err, domain.ErrInvalidOrExpiredCode) {
		t.Fatalf("expected ErrInvalidOrExpiredCode on replay, got %v", err)
	}
}

func TestRegistration_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{name: "just before expiry", elapsed: 14*time.Minute + 59*time.Second},
		{name: "at expiry", elapsed: 15 * time.Minute, wantErr: domain.ErrInvalidOrExpiredCode},
		{name: "after expiry", elapsed: 20 * time.Minute, wantErr: domain.ErrInvalidOrExpiredCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			svc := f.registration("123456")
			pending := startRegistration(t, svc, "a@x.com")

			f.clock.Advance(tt.elapsed)
			_, _, err := svc.Verify(context.Background(), ports.VerifyEmailInput{Email: "a@x.com", Code: "123456", TempData: pending.TempData})
			if tt.wantErr == nil && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegistration_ResendSupersedesEarlierCode(t *testing.T) {
	f := newFixture()
	svc := f.registration("111111", "222222")
	pending := startRegistration(t, svc, "a@x.com")

	if err := svc.Resend(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("Resend returned error: %v", err)
	}
	if f.codes.count("a@x.com") != 2 {
		t.Fatalf("expected both codes to remain stored")
	}

	_, _, err := svc.Verify(context.Background(), ports.VerifyEmailInput{Email: "a@x.com", Code: "111111", TempData: pending.TempData})
	if !errors.Is(err, domain.ErrInvalidOrExpiredCode) {
		t.Fatalf("expected superseded code to fail, got %v", err)
	}
	if _, _, err := svc.Verify(context.Background(), ports.VerifyEmailInput{Email: "a@x.com", Code: "222222", TempData: pending.TempData}); err != nil {
		t.Fatalf("expected latest code to verify, got %v", err)
	}
}

func TestRegistration_WrongCodeAndTamperedContinuation(t *testing.T) {
	f := newFixture()
	svc := f.registration("123456")
	pending := startRegistration(t, svc, "a@x.com")

	cases := []ports.VerifyEmailInput{
		{Email: "a@x.com", Code: "000000", TempData: pending.TempData},
		{Email: "a@x.com", Code: "123456", TempData: pending.TempData + "x"},
		{Email: "b@x.com", Code: "123456", TempData: pending.TempData},
		{Email: "a@x.com", Code: "123456", TempData: ""},
	}
	for i, in := range cases {
		if _, _, err := svc.Verify(context.Background(), in); !errors.Is(err, domain.ErrInvalidOrExpiredCode) {
			t.Fatalf("case %d: expected ErrInvalidOrExpiredCode, got %v", i, err)
		}
	}
}

func TestRegistration_ResetCodeCannotVerifyRegistration(t *testing.T) {
	f := newFixture()
	svc := f.registration("123456")
	pending := startRegistration(t, svc, "a@x.com")

	// A newer reset row for the same email must not shadow or satisfy the
	// registration lookup.
	_ = f.codes.Insert(context.Background(), domain.NewVerificationCode("a@x.com", domain.PurposePasswordReset, "999999", f.clock.Now()))

	if _, _, err := svc.Verify(context.Background(), ports.VerifyEmailInput{Email: "a@x.com", Code: "999999", TempData: pending.TempData}); !errors.Is(err, domain.ErrInvalidOrExpiredCode) {
		t.Fatalf("expected reset code to be rejected, got %v", err)
	}
	if _, _, err := svc.Verify(context.Background(), ports.VerifyEmailInput{Email: "a@x.com", Code: "123456", TempData: pending.TempData}); err != nil {
		t.Fatalf("expected registration code to verify, got %v", err)
	}
}

func TestRegistration_ConcurrentVerifyHasOneWinner(t *testing.T) {
	f := newFixture()
	svc := f.registration("123456")
	pending := startRegistration(t, svc, "a@x.com")
	in := ports.VerifyEmailInput{Email: "a@x.com", Code: "123456", TempData: pending.TempData}

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Verify(context.Background(), in)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes := 0
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrInvalidOrExpiredCode):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
}

func TestRegistration_ResendForExistingAccount(t *testing.T) {
	f := newFixture()
	f.seedAccount("a@x.com", "pw")
	svc := f.registration("123456")

	if err := svc.Resend(context.Background(), "a@x.com"); !errors.Is(err, domain.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestRegistration_FailedCreateKeepsCodeRedeemable(t *testing.T) {
	f := newFixture()
	svc := f.registration("123456")
	pending := startRegistration(t, svc, "a@x.com")
	in := ports.VerifyEmailInput{Email: "a@x.com", Code: "123456", TempData: pending.TempData}

	f.accounts.createErr = errors.New("write conflict")
	if _, _, err := svc.Verify(context.Background(), in); err == nil || errors.Is(err, domain.ErrInvalidOrExpiredCode) {
		t.Fatalf("expected the storage error, got %v", err)
	}
	if f.codes.txWrites != 1 {
		t.Fatalf("expected the consume to run inside the transaction, got %d writes", f.codes.txWrites)
	}
	if _, err := f.accounts.FindByEmail(context.Background(), "a@x.com"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("account must not exist after a failed verify, got %v", err)
	}

	f.accounts.createErr = nil
	if _, account, err := svc.Verify(context.Background(), in); err != nil {
		t.Fatalf("expected the code to survive the aborted attempt, got %v", err)
	} else if account.Email != "a@x.com" {
		t.Fatalf("unexpected account: %+v", account)
	}
	if f.accounts.txWrites != 1 {
		t.Fatalf("expected the account insert to run inside the transaction, got %d writes", f.accounts.txWrites)
	}
}
