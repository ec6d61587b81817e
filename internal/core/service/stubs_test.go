package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
)

type stubAccountRepo struct {
	mu        sync.Mutex
	accounts  map[string]*domain.Account
	seq       int
	findErr   error
	createErr error
	updateErr error
	txWrites  int
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	a, ok := r.accounts[email]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ID == id {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[account.Email]; exists {
		return nil, domain.ErrAccountExists
	}
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.seq++
	stored := cloneAccount(account)
	stored.ID = "acc_" + strconv.Itoa(r.seq)
	r.accounts[stored.Email] = stored
	if recordUndo(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.accounts, stored.Email)
	}) {
		r.txWrites++
	}
	return cloneAccount(stored), nil
}

func (r *stubAccountRepo) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	a, ok := r.accounts[email]
	if !ok {
		return domain.ErrAccountNotFound
	}
	previous := a.PasswordHash
	a.PasswordHash = hash
	if recordUndo(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		a.PasswordHash = previous
	}) {
		r.txWrites++
	}
	return nil
}

func (r *stubAccountRepo) LinkProvider(_ context.Context, email, provider string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[email]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a.OAuthProvider = provider
	a.EmailVerified = true
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) UpdateProfile(_ context.Context, id string, update domain.ProfileUpdate) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ID != id {
			continue
		}
		if update.Name != nil {
			a.Name = *update.Name
		}
		if update.Company != nil {
			a.Company = *update.Company
		}
		if update.Phone != nil {
			a.Phone = *update.Phone
		}
		if update.EmailNotifications != nil {
			a.EmailNotifications = *update.EmailNotifications
		}
		return cloneAccount(a), nil
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for email, a := range r.accounts {
		if a.ID == id {
			delete(r.accounts, email)
			return nil
		}
	}
	return domain.ErrAccountNotFound
}

// stubCodeRepo keeps rows in issue order, like the ledger.
type stubCodeRepo struct {
	mu       sync.Mutex
	rows     []*domain.VerificationCode
	txWrites int
}

func (r *stubCodeRepo) Insert(_ context.Context, code *domain.VerificationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *code
	stored.ID = "code_" + strconv.Itoa(len(r.rows)+1)
	code.ID = stored.ID
	r.rows = append(r.rows, &stored)
	return nil
}

func (r *stubCodeRepo) Latest(_ context.Context, email string, purpose domain.CodePurpose) (*domain.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		row := r.rows[i]
		if row.Email == email && row.Purpose == purpose {
			clone := *row
			return &clone, nil
		}
	}
	return nil, domain.ErrCodeNotFound
}

func (r *stubCodeRepo) MarkConsumed(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID != id {
			continue
		}
		if row.Consumed {
			return domain.ErrCodeAlreadyConsumed
		}
		row.Consumed = true
		row.ConsumedAt = &at
		if recordUndo(ctx, func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			row.Consumed = false
			row.ConsumedAt = nil
		}) {
			r.txWrites++
		}
		return nil
	}
	return domain.ErrCodeNotFound
}

func (r *stubCodeRepo) DeleteByEmail(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.Email != email {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	return nil
}

func (r *stubCodeRepo) count(email string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.Email == email {
			n++
		}
	}
	return n
}

type txKey struct{}

// txLog collects undo steps for the writes made inside one transaction.
type txLog struct {
	mu   sync.Mutex
	undo []func()
}

// recordUndo registers fn with the transaction carried by ctx. It reports
// false when ctx is not inside a transaction.
func recordUndo(ctx context.Context, fn func()) bool {
	log, ok := ctx.Value(txKey{}).(*txLog)
	if !ok {
		return false
	}
	log.mu.Lock()
	log.undo = append(log.undo, fn)
	log.mu.Unlock()
	return true
}

// stubTx aborts like a database would: when fn fails, every write it made
// through the stub repositories is undone in reverse order.
type stubTx struct{}

func (stubTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	log := &txLog{}
	if err := fn(context.WithValue(ctx, txKey{}, log)); err != nil {
		log.mu.Lock()
		defer log.mu.Unlock()
		for i := len(log.undo) - 1; i >= 0; i-- {
			log.undo[i]()
		}
		return err
	}
	return nil
}

type stubPurger struct {
	purged []string
}

func (p *stubPurger) PurgeByEmail(_ context.Context, email string) error {
	p.purged = append(p.purged, email)
	return nil
}

type sentMail struct {
	kind string
	to   string
	code string
}

type stubMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *stubMailer) record(kind, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind: kind, to: to, code: code})
	return nil
}

func (m *stubMailer) SendVerificationCode(_ context.Context, to, _, code string) error {
	return m.record("verification", to, code)
}

func (m *stubMailer) SendPasswordResetCode(_ context.Context, to, code string) error {
	return m.record("reset", to, code)
}

func (m *stubMailer) SendWelcome(_ context.Context, to, _ string) error {
	return m.record("welcome", to, "")
}

func (m *stubMailer) SendPasswordChanged(_ context.Context, to, _ string) error {
	return m.record("password_changed", to, "")
}

type stubQueue struct {
	mu   sync.Mutex
	sent []ports.Notification
}

func (q *stubQueue) Enqueue(n ports.Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, n)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fixedCodes hands out the given codes in order and repeats the last one.
func fixedCodes(codes ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(codes) == 0 {
			return "", errors.New("no codes")
		}
		c := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return c, nil
	}
}

// fixture wires every service against the same in-memory stores.
type fixture struct {
	accounts *stubAccountRepo
	codes    *stubCodeRepo
	purger   *stubPurger
	mailer   *stubMailer
	queue    *stubQueue
	clock    *fakeClock
	tokens   *TokenIssuer
}

func newFixture() *fixture {
	clock := newFakeClock()
	tokens := NewTokenIssuer("test-secret", time.Hour)
	tokens.now = clock.Now
	return &fixture{
		accounts: newStubAccountRepo(),
		codes:    &stubCodeRepo{},
		purger:   &stubPurger{},
		mailer:   &stubMailer{},
		queue:    &stubQueue{},
		clock:    clock,
		tokens:   tokens,
	}
}

func (f *fixture) registration(codes ...string) *registrationService {
	svc := NewRegistrationService(f.accounts, f.codes, stubTx{}, f.mailer, f.tokens, f.queue, zerolog.Nop()).(*registrationService)
	svc.now = f.clock.Now
	svc.codes.generate = fixedCodes(codes...)
	return svc
}

func (f *fixture) recovery(codes ...string) *recoveryService {
	svc := NewRecoveryService(f.accounts, f.codes, stubTx{}, f.mailer, f.queue, zerolog.Nop()).(*recoveryService)
	svc.now = f.clock.Now
	svc.codes.generate = fixedCodes(codes...)
	return svc
}

func (f *fixture) auth() ports.AuthService {
	return NewAuthService(f.accounts, f.codes, f.purger, stubTx{}, f.tokens, f.queue, zerolog.Nop())
}

// seedAccount stores a password account directly.
func (f *fixture) seedAccount(email, password string) *domain.Account {
	hash, err := hashPassword(password)
	if err != nil {
		panic(err)
	}
	a, err := f.accounts.Create(context.Background(), &domain.Account{
		Name:               "Seeded",
		Email:              email,
		PasswordHash:       hash,
		Role:               domain.RoleClient,
		EmailVerified:      true,
		EmailNotifications: true,
	})
	if err != nil {
		panic(err)
	}
	return a
}
