package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/freshvalley/dairy-shop-backend/internal/domain"
	"github.com/freshvalley/dairy-shop-backend/internal/util"
)

type createdUser struct {
	customerCode string
	username     string
	email        string
	phone        string
	address      string
	hash         []byte
	salt         []byte
}

type fakeUserRepo struct {
	createCalls  []createdUser
	createErrs   []error
	createResult *domain.User

	findByUsernameResult *domain.User
	findByUsernameErr    error

	findByPhoneResult *domain.User
	findByPhoneErr    error

	findByIDResult *domain.User
	findByIDErr    error
}

func (f *fakeUserRepo) Create(ctx context.Context, customerCode, username, email, phone, address string, passwordHash, passwordSalt []byte) (*domain.User, error) {
	f.createCalls = append(f.createCalls, createdUser{
		customerCode: customerCode,
		username:     username,
		email:        email,
		phone:        phone,
		address:      address,
		hash:         append([]byte(nil), passwordHash...),
		salt:         append([]byte(nil), passwordSalt...),
	})
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.createResult != nil {
		clone := *f.createResult
		return &clone, nil
	}
	return &domain.User{
		ID:           uuid.New(),
		CustomerCode: customerCode,
		Username:     username,
		Email:        email,
		Phone:        phone,
		Address:      address,
		PasswordHash: passwordHash,
		PasswordSalt: passwordSalt,
	}, nil
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	if f.findByUsernameErr != nil {
		return nil, f.findByUsernameErr
	}
	return f.findByUsernameResult, nil
}

func (f *fakeUserRepo) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	if f.findByPhoneErr != nil {
		return nil, f.findByPhoneErr
	}
	return f.findByPhoneResult, nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if f.findByIDErr != nil {
		return nil, f.findByIDErr
	}
	return f.findByIDResult, nil
}

// memUserRepo is a stateful variant for flow tests: Create stores the user and
// the finders serve it back.
type memUserRepo struct {
	user *domain.User
}

func (m *memUserRepo) Create(ctx context.Context, customerCode, username, email, phone, address string, passwordHash, passwordSalt []byte) (*domain.User, error) {
	m.user = &domain.User{
		ID:           uuid.New(),
		CustomerCode: customerCode,
		Username:     username,
		Email:        email,
		Phone:        phone,
		Address:      address,
		PasswordHash: append([]byte(nil), passwordHash...),
		PasswordSalt: append([]byte(nil), passwordSalt...),
	}
	return m.user, nil
}

func (m *memUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.user == nil || m.user.Username != username {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *memUserRepo) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	if m.user == nil || m.user.Phone != phone {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

type fakeSessionRepo struct {
	createdSessions []struct {
		userID    uuid.UUID
		token     string
		expiresAt time.Time
	}
	createErr error

	findActiveToken  string
	findActiveResult *domain.Session
	findActiveErr    error

	deactivatedToken string
	deactivateErr    error
}

func (f *fakeSessionRepo) CreateSession(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*domain.Session, error) {
	f.createdSessions = append(f.createdSessions, struct {
		userID    uuid.UUID
		token     string
		expiresAt time.Time
	}{userID: userID, token: token, expiresAt: expiresAt})
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &domain.Session{ID: 1, UserID: userID, Token: token, ExpiresAt: expiresAt, IsActive: true}, nil
}

func (f *fakeSessionRepo) DeactivateSession(ctx context.Context, token string) error {
	f.deactivatedToken = token
	return f.deactivateErr
}

func (f *fakeSessionRepo) FindActiveSession(ctx context.Context, token string) (*domain.Session, error) {
	f.findActiveToken = token
	if f.findActiveErr != nil {
		return nil, f.findActiveErr
	}
	if f.findActiveResult != nil {
		return f.findActiveResult, nil
	}
	return nil, sql.ErrNoRows
}

// fakeResetRepo keeps rows in memory so used/expired/replaced semantics behave
// like the real ledger.
type fakeResetRepo struct {
	nextID int64
	rows   map[int64]*domain.PasswordResetOTP

	replaceCalls  int
	replaceErr    error
	markUsedCalls []int64
	markUsedErr   error
	findActiveErr error

	completedResets []completedReset
	completeErr     error
	completeHook    func(userID uuid.UUID, hash, salt []byte)
}

type completedReset struct {
	userID uuid.UUID
	otpID  int64
	hash   []byte
	salt   []byte
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{rows: map[int64]*domain.PasswordResetOTP{}}
}

func (f *fakeResetRepo) Replace(ctx context.Context, userID uuid.UUID, otpHash, otpSalt []byte, expiresAt time.Time) (*domain.PasswordResetOTP, error) {
	f.replaceCalls++
	if f.replaceErr != nil {
		return nil, f.replaceErr
	}
	for _, row := range f.rows {
		if row.UserID == userID && !row.Used {
			row.Used = true
		}
	}
	f.nextID++
	row := &domain.PasswordResetOTP{
		ID:        f.nextID,
		UserID:    userID,
		OTPHash:   append([]byte(nil), otpHash...),
		OTPSalt:   append([]byte(nil), otpSalt...),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	f.rows[row.ID] = row
	clone := *row
	return &clone, nil
}

func (f *fakeResetRepo) FindActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.PasswordResetOTP, error) {
	if f.findActiveErr != nil {
		return nil, f.findActiveErr
	}
	var active []*domain.PasswordResetOTP
	for _, row := range f.rows {
		if row.UserID == userID && !row.Used && row.ExpiresAt.After(now) {
			active = append(active, row)
		}
	}
	if len(active) == 0 {
		return nil, sql.ErrNoRows
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID > active[j].ID })
	clone := *active[0]
	return &clone, nil
}

func (f *fakeResetRepo) FindByID(ctx context.Context, id int64) (*domain.PasswordResetOTP, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *row
	return &clone, nil
}

func (f *fakeResetRepo) MarkUsed(ctx context.Context, id int64) error {
	f.markUsedCalls = append(f.markUsedCalls, id)
	if f.markUsedErr != nil {
		return f.markUsedErr
	}
	if row, ok := f.rows[id]; ok {
		row.Used = true
	}
	return nil
}

// CompleteReset mirrors the store contract: on error nothing changes; on
// success the row is stamped and the hook (standing in for the user-table
// write that shares the transaction) fires.
func (f *fakeResetRepo) CompleteReset(ctx context.Context, userID uuid.UUID, otpID int64, passwordHash, passwordSalt []byte, at time.Time) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	row, ok := f.rows[otpID]
	if !ok || row.UserID != userID || !row.Used || row.CompletedAt != nil {
		return sql.ErrNoRows
	}
	completed := at
	row.CompletedAt = &completed
	f.completedResets = append(f.completedResets, completedReset{
		userID: userID,
		otpID:  otpID,
		hash:   append([]byte(nil), passwordHash...),
		salt:   append([]byte(nil), passwordSalt...),
	})
	if f.completeHook != nil {
		f.completeHook(userID, passwordHash, passwordSalt)
	}
	return nil
}

func (f *fakeResetRepo) unusedCount(userID uuid.UUID) int {
	count := 0
	for _, row := range f.rows {
		if row.UserID == userID && !row.Used {
			count++
		}
	}
	return count
}

type fakeCodeSender struct {
	sent []struct {
		phone string
		code  string
	}
	err error
}

func (f *fakeCodeSender) SendResetCode(ctx context.Context, phone, code string) error {
	f.sent = append(f.sent, struct {
		phone string
		code  string
	}{phone: phone, code: code})
	return f.err
}

func newAuthServiceForTests(users *fakeUserRepo, sessions *fakeSessionRepo, resets *fakeResetRepo, sender ResetCodeSender) *AuthService {
	if sessions == nil {
		sessions = &fakeSessionRepo{}
	}
	if resets == nil {
		resets = newFakeResetRepo()
	}
	if sender == nil {
		sender = &fakeCodeSender{}
	}
	tokens := util.NewResetTokenManager("test-secret", 5*time.Minute)
	return NewAuthService(users, sessions, resets, sender, tokens, time.Hour, 10*time.Minute, 6)
}

func TestRegisterSuccess(t *testing.T) {
	ctx := context.Background()
	userRepo := &fakeUserRepo{}
	svc := newAuthServiceForTests(userRepo, nil, nil, nil)

	user, err := svc.Register(ctx, RegisterInput{
		Username: " alice ",
		Email:    "Alice@Example.com",
		Phone:    "555-0100",
		Address:  "1 Farm Lane",
		Password: "newpass1",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(userRepo.createCalls) != 1 {
		t.Fatalf("expected one create call, got %d", len(userRepo.createCalls))
	}
	call := userRepo.createCalls[0]
	if call.username != "alice" {
		t.Fatalf("expected trimmed username, got %q", call.username)
	}
	if call.email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", call.email)
	}
	if !strings.HasPrefix(call.customerCode, "CUS") || len(call.customerCode) != 8 {
		t.Fatalf("expected CUS + 5 digits customer code, got %q", call.customerCode)
	}
	if len(call.hash) == 0 || len(call.salt) == 0 {
		t.Fatalf("expected password hash and salt to be set")
	}
	if !util.VerifySecret("newpass1", call.salt, call.hash) {
		t.Fatalf("expected stored hash to match the password")
	}
	if user.CustomerCode != call.customerCode {
		t.Fatalf("expected returned user to carry the allocated customer code")
	}
}

func TestRegisterRetriesCustomerCodeCollision(t *testing.T) {
	ctx := context.Background()
	userRepo := &fakeUserRepo{
		createErrs: []error{
			&pgconn.PgError{Code: "23505", ConstraintName: "users_customer_code_key"},
			nil,
		},
	}
	svc := newAuthServiceForTests(userRepo, nil, nil, nil)

	if _, err := svc.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Phone: "555-0101", Address: "x", Password: "secret1"}); err != nil {
		t.Fatalf("expected collision to be retried, got %v", err)
	}
	if len(userRepo.createCalls) != 2 {
		t.Fatalf("expected two create attempts, got %d", len(userRepo.createCalls))
	}
}

func TestRegisterDuplicateIdentity(t *testing.T) {
	ctx := context.Background()
	for _, constraint := range []string{"users_username_key", "users_email_key", "users_phone_key"} {
		userRepo := &fakeUserRepo{
			createErrs: []error{&pgconn.PgError{Code: "23505", ConstraintName: constraint}},
		}
		svc := newAuthServiceForTests(userRepo, nil, nil, nil)

		_, err := svc.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Phone: "555-0101", Address: "x", Password: "secret1"})
		if !errors.Is(err, ErrIdentityTaken) {
			t.Fatalf("%s: expected ErrIdentityTaken, got %v", constraint, err)
		}
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	userRepo := &fakeUserRepo{}
	svc := newAuthServiceForTests(userRepo, nil, nil, nil)

	_, err := svc.Register(context.Background(), RegisterInput{Username: "bob", Email: "bob@example.com", Phone: "555-0101", Address: "x", Password: "abc"})
	if !errors.Is(err, ErrPasswordInvalid) {
		t.Fatalf("expected ErrPasswordInvalid, got %v", err)
	}
	if len(userRepo.createCalls) != 0 {
		t.Fatalf("expected no create attempt for invalid password")
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		svc := newAuthServiceForTests(&fakeUserRepo{findByUsernameErr: sql.ErrNoRows}, nil, nil, nil)
		_, err := svc.Login(ctx, "nobody", "whatever")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		hash, salt, _ := util.DeriveSecret("right-password")
		user := &domain.User{ID: uuid.New(), Username: "alice", PasswordHash: hash, PasswordSalt: salt}
		svc := newAuthServiceForTests(&fakeUserRepo{findByUsernameResult: user}, nil, nil, nil)
		_, err := svc.Login(ctx, "alice", "wrong-password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("success creates session", func(t *testing.T) {
		hash, salt, _ := util.DeriveSecret("right-password")
		user := &domain.User{ID: uuid.New(), Username: "alice", PasswordHash: hash, PasswordSalt: salt}
		sessions := &fakeSessionRepo{}
		svc := newAuthServiceForTests(&fakeUserRepo{findByUsernameResult: user}, sessions, nil, nil)

		result, err := svc.Login(ctx, "alice", "right-password")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(sessions.createdSessions) != 1 {
			t.Fatalf("expected one session, got %d", len(sessions.createdSessions))
		}
		if sessions.createdSessions[0].userID != user.ID {
			t.Fatalf("expected session for user %s", user.ID)
		}
		if result.Token == "" || result.Token != sessions.createdSessions[0].token {
			t.Fatalf("expected result token to match stored session token")
		}
		if !result.ExpiresAt.After(time.Now()) {
			t.Fatalf("expected session expiry in the future")
		}
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), Username: "alice"}

	t.Run("valid session", func(t *testing.T) {
		sessions := &fakeSessionRepo{findActiveResult: &domain.Session{ID: 1, UserID: user.ID, Token: "tok", IsActive: true, ExpiresAt: time.Now().Add(time.Hour)}}
		svc := newAuthServiceForTests(&fakeUserRepo{findByIDResult: user}, sessions, nil, nil)

		got, err := svc.Authenticate(ctx, "tok")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.ID != user.ID {
			t.Fatalf("expected user %s, got %s", user.ID, got.ID)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		sessions := &fakeSessionRepo{findActiveErr: sql.ErrNoRows}
		svc := newAuthServiceForTests(&fakeUserRepo{}, sessions, nil, nil)
		if _, err := svc.Authenticate(ctx, "missing"); !errors.Is(err, ErrSessionInvalid) {
			t.Fatalf("expected ErrSessionInvalid, got %v", err)
		}
	})
}

func TestLogoutDeactivatesSession(t *testing.T) {
	sessions := &fakeSessionRepo{}
	svc := newAuthServiceForTests(&fakeUserRepo{}, sessions, nil, nil)
	if err := svc.Logout(context.Background(), "tok-123"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sessions.deactivatedToken != "tok-123" {
		t.Fatalf("expected session token to be deactivated")
	}
}

func TestRequestPasswordReset(t *testing.T) {
	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), Phone: "555-0100"}

	t.Run("issues and delivers a code", func(t *testing.T) {
		resets := newFakeResetRepo()
		sender := &fakeCodeSender{}
		svc := newAuthServiceForTests(&fakeUserRepo{findByPhoneResult: user}, nil, resets, sender)

		if err := svc.RequestPasswordReset(ctx, user.Phone); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resets.replaceCalls != 1 {
			t.Fatalf("expected one replace call, got %d", resets.replaceCalls)
		}
		if len(sender.sent) != 1 || sender.sent[0].phone != user.Phone {
			t.Fatalf("expected code to be sent to %s", user.Phone)
		}
		if len(sender.sent[0].code) != 6 {
			t.Fatalf("expected a 6-digit code, got %q", sender.sent[0].code)
		}
		stored, err := resets.FindActiveByUser(ctx, user.ID, time.Now())
		if err != nil {
			t.Fatalf("expected an active code in the ledger: %v", err)
		}
		if !util.VerifySecret(sender.sent[0].code, stored.OTPSalt, stored.OTPHash) {
			t.Fatalf("expected stored hash to match the delivered code")
		}
	})

	t.Run("unknown phone", func(t *testing.T) {
		svc := newAuthServiceForTests(&fakeUserRepo{findByPhoneErr: sql.ErrNoRows}, nil, nil, nil)
		if err := svc.RequestPasswordReset(ctx, "555-9999"); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("second request leaves exactly one live code", func(t *testing.T) {
		resets := newFakeResetRepo()
		svc := newAuthServiceForTests(&fakeUserRepo{findByPhoneResult: user}, nil, resets, &fakeCodeSender{})

		if err := svc.RequestPasswordReset(ctx, user.Phone); err != nil {
			t.Fatalf("first request failed: %v", err)
		}
		if err := svc.RequestPasswordReset(ctx, user.Phone); err != nil {
			t.Fatalf("second request failed: %v", err)
		}
		if got := resets.unusedCount(user.ID); got != 1 {
			t.Fatalf("expected exactly one unused code, got %d", got)
		}
	})

	t.Run("delivery failure is surfaced and code retired", func(t *testing.T) {
		resets := newFakeResetRepo()
		sender := &fakeCodeSender{err: errors.New("gateway down")}
		svc := newAuthServiceForTests(&fakeUserRepo{findByPhoneResult: user}, nil, resets, sender)

		err := svc.RequestPasswordReset(ctx, user.Phone)
		if !errors.Is(err, ErrCodeDelivery) {
			t.Fatalf("expected ErrCodeDelivery, got %v", err)
		}
		if len(resets.markUsedCalls) == 0 {
			t.Fatalf("expected undeliverable code to be retired")
		}
		if got := resets.unusedCount(user.ID); got != 0 {
			t.Fatalf("expected no live code after failed delivery, got %d", got)
		}
	})
}

func TestVerifyResetOTP(t *testing.T) {
	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), Phone: "555-0100"}

	issue := func(t *testing.T, svc *AuthService, sender *fakeCodeSender) string {
		t.Helper()
		if err := svc.RequestPasswordReset(ctx, user.Phone); err != nil {
			t.Fatalf("request reset failed: %v", err)
		}
		return sender.sent[len(sender.sent)-1].code
	}

	t.Run("success consumes the code and returns a bound token", func(t *testing.T) {
		resets := newFakeResetRepo()
		sender := &fakeCodeSender{}
		svc := newAuthServiceForTests(&fakeUserRepo{findByPhoneResult: user}, nil, resets, sender)
		code := issue(t, svc, sender)

		token, err := svc.VerifyResetOTP(ctx, user.Phone, code)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(resets.markUsedCalls) != 1 {
			t.Fatalf("expected the code to be consumed")
		}
		tokenUser, otpID, err := svc.resetTokens.Parse(token)
		if err != nil {
			t.Fatalf("expected a parseable reset token: %v", err)
		}
		if tokenUser != user.ID || otpID != resets.markUsedCalls[0] {
			t.Fatalf("expected token bound to user and consumed code")
		}
	})

	t.Run("wrong code", func(t *testing.T) {
		resets := newFakeResetRepo()
		sender := &fakeCodeSender{}
		svc := newAuthServiceForTests(&fakeUserRepo{findByPhoneResult: user}, nil, resets, sender)
		code := issue(t, svc, sender)

		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}
		if _, err := svc.VerifyResetOTP(ctx, user.Phone, wrong); !errors.Is(err, ErrOTPInvalid) {
			t.Fatalf("expected ErrOTPInvalid, got %v", err)
		}
	})

	t.Run("expired code fails even when the value matches", func(t *testing.T) {
		resets := newFakeResetRepo()
		sender := &fakeCodeSender{}
		svc := newAuthServiceForTests(&fakeUserRepo{findByPhoneResult: user}, nil, resets, sender)
		code := issue(t, svc, sender)

		svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
		if _, err := svc.VerifyResetOTP(ctx, user.Phone, code); !errors.Is(err, ErrOTPInvalid) {
			t.Fatalf("expected ErrOTPInvalid for expired code, got %v", err)
		}
	})

	t.Run("replayed code is rejected", func(t *testing.T) {
		resets := newFakeResetRepo()
		sender := &fakeCodeSender{}
		svc := newAuthServiceForTests(&fakeUserRepo{findByPhoneResult: user}, nil, resets, sender)
		code := issue(t, svc, sender)

		if _, err := svc.VerifyResetOTP(ctx, user.Phone, code); err != nil {
			t.Fatalf("first verify failed: %v", err)
		}
		if _, err := svc.VerifyResetOTP(ctx, user.Phone, code); !errors.Is(err, ErrOTPInvalid) {
			t.Fatalf("expected replay to fail with ErrOTPInvalid, got %v", err)
		}
	})

	t.Run("unknown phone", func(t *testing.T) {
		svc := newAuthServiceForTests(&fakeUserRepo{findByPhoneErr: sql.ErrNoRows}, nil, nil, nil)
		if _, err := svc.VerifyResetOTP(ctx, "555-9999", "123456"); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestCompleteReset(t *testing.T) {
	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), Phone: "555-0100"}

	setup := func(t *testing.T) (*AuthService, *fakeResetRepo, string) {
		t.Helper()
		users := &fakeUserRepo{findByPhoneResult: user}
		resets := newFakeResetRepo()
		sender := &fakeCodeSender{}
		svc := newAuthServiceForTests(users, nil, resets, sender)
		if err := svc.RequestPasswordReset(ctx, user.Phone); err != nil {
			t.Fatalf("request reset failed: %v", err)
		}
		token, err := svc.VerifyResetOTP(ctx, user.Phone, sender.sent[0].code)
		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		return svc, resets, token
	}

	t.Run("success swaps the hash and closes the reset together", func(t *testing.T) {
		svc, resets, token := setup(t)

		if err := svc.CompleteReset(ctx, token, "newpass1", "newpass1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(resets.completedResets) != 1 {
			t.Fatalf("expected one completed reset, got %d", len(resets.completedResets))
		}
		done := resets.completedResets[0]
		if done.userID != user.ID {
			t.Fatalf("expected completion for user %s", user.ID)
		}
		if !util.VerifySecret("newpass1", done.salt, done.hash) {
			t.Fatalf("expected stored hash to match the new password")
		}
		row, err := resets.FindByID(ctx, done.otpID)
		if err != nil {
			t.Fatalf("find completed row: %v", err)
		}
		if row.CompletedAt == nil {
			t.Fatalf("expected reset row to carry a completion stamp")
		}
	})

	t.Run("mismatched confirmation leaves the hash unchanged", func(t *testing.T) {
		svc, resets, token := setup(t)

		err := svc.CompleteReset(ctx, token, "newpass1", "different1")
		if !errors.Is(err, ErrPasswordInvalid) {
			t.Fatalf("expected ErrPasswordInvalid, got %v", err)
		}
		if len(resets.completedResets) != 0 {
			t.Fatalf("expected no password update on mismatch")
		}
	})

	t.Run("weak password", func(t *testing.T) {
		svc, _, token := setup(t)
		if err := svc.CompleteReset(ctx, token, "abc", "abc"); !errors.Is(err, ErrPasswordInvalid) {
			t.Fatalf("expected ErrPasswordInvalid, got %v", err)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		svc, _, _ := setup(t)
		if err := svc.CompleteReset(ctx, "not-a-token", "newpass1", "newpass1"); !errors.Is(err, ErrResetTokenInvalid) {
			t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
		}
	})

	t.Run("failed completion commits nothing and stays retryable", func(t *testing.T) {
		svc, resets, token := setup(t)

		resets.completeErr = errors.New("store hiccup")
		if err := svc.CompleteReset(ctx, token, "newpass1", "newpass1"); err == nil {
			t.Fatal("expected error when the completion write fails")
		}
		if len(resets.completedResets) != 0 {
			t.Fatalf("expected no partial write after failed completion")
		}

		// Nothing committed, so the same token still finishes the reset once
		// the store recovers.
		resets.completeErr = nil
		if err := svc.CompleteReset(ctx, token, "newpass1", "newpass1"); err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if len(resets.completedResets) != 1 {
			t.Fatalf("expected exactly one completed reset after retry")
		}
	})

	t.Run("token cannot be replayed after completion", func(t *testing.T) {
		svc, _, token := setup(t)
		if err := svc.CompleteReset(ctx, token, "newpass1", "newpass1"); err != nil {
			t.Fatalf("first completion failed: %v", err)
		}
		if err := svc.CompleteReset(ctx, token, "anotherpass1", "anotherpass1"); !errors.Is(err, ErrResetTokenInvalid) {
			t.Fatalf("expected replayed token to fail, got %v", err)
		}
	})

	t.Run("token signed for another user is rejected", func(t *testing.T) {
		svc, resets, _ := setup(t)
		otherToken, err := svc.resetTokens.Generate(uuid.New(), resets.nextID)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		if err := svc.CompleteReset(ctx, otherToken, "newpass1", "newpass1"); !errors.Is(err, ErrResetTokenInvalid) {
			t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
		}
		if len(resets.completedResets) != 0 {
			t.Fatalf("expected no completion for a foreign token")
		}
	})
}

func TestPasswordResetEndToEnd(t *testing.T) {
	ctx := context.Background()
	users := &memUserRepo{}
	resets := newFakeResetRepo()
	resets.completeHook = func(userID uuid.UUID, hash, salt []byte) {
		users.user.PasswordHash = hash
		users.user.PasswordSalt = salt
	}
	sender := &fakeCodeSender{}
	tokens := util.NewResetTokenManager("test-secret", 5*time.Minute)
	svc := NewAuthService(users, &fakeSessionRepo{}, resets, sender, tokens, time.Hour, 10*time.Minute, 6)

	if _, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Phone:    "555-0100",
		Address:  "1 Farm Lane",
		Password: "oldpass1",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.Login(ctx, "alice", "oldpass1"); err != nil {
		t.Fatalf("login with the original password failed: %v", err)
	}

	if err := svc.RequestPasswordReset(ctx, "555-0100"); err != nil {
		t.Fatalf("request reset failed: %v", err)
	}
	token, err := svc.VerifyResetOTP(ctx, "555-0100", sender.sent[0].code)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if err := svc.CompleteReset(ctx, token, "newpass1", "newpass1"); err != nil {
		t.Fatalf("complete reset failed: %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "oldpass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to be rejected after reset, got %v", err)
	}
	if _, err := svc.Login(ctx, "alice", "newpass1"); err != nil {
		t.Fatalf("login with the new password failed: %v", err)
	}
}
