package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/freshvalley/dairy-shop-backend/internal/domain"
	"github.com/freshvalley/dairy-shop-backend/internal/repository/ports"
	"github.com/freshvalley/dairy-shop-backend/internal/util"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrIdentityTaken      = errors.New("username, email, or phone already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrPasswordInvalid    = errors.New("password validation failed")
	ErrOTPInvalid         = errors.New("invalid or expired code")
	ErrResetTokenInvalid  = errors.New("invalid reset token")
	ErrCodeDelivery       = errors.New("could not deliver reset code")
	ErrSessionInvalid     = errors.New("session expired or revoked")
)

// ResetCodeSender delivers a one-time code out of band. Implementations live
// in transport/sms.
type ResetCodeSender interface {
	SendResetCode(ctx context.Context, phone, code string) error
}

const (
	customerCodePrefix = "CUS"
	customerCodeDigits = 5
	// Collisions on a 5-digit suffix are rare but possible; give up after a
	// handful of draws rather than looping forever against a broken store.
	maxCustomerCodeAttempts = 10
)

type AuthService struct {
	users    ports.UserRepository
	sessions ports.SessionRepository
	resets   ports.PasswordResetRepository
	sender   ResetCodeSender

	resetTokens *util.ResetTokenManager
	sessionTTL  time.Duration
	otpTTL      time.Duration
	otpLength   int

	now func() time.Time
}

func NewAuthService(
	users ports.UserRepository,
	sessions ports.SessionRepository,
	resets ports.PasswordResetRepository,
	sender ResetCodeSender,
	resetTokens *util.ResetTokenManager,
	sessionTTL time.Duration,
	otpTTL time.Duration,
	otpLength int,
) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	if otpTTL <= 0 {
		otpTTL = 10 * time.Minute
	}
	if otpLength <= 0 {
		otpLength = 6
	}
	return &AuthService{
		users:       users,
		sessions:    sessions,
		resets:      resets,
		sender:      sender,
		resetTokens: resetTokens,
		sessionTTL:  sessionTTL,
		otpTTL:      otpTTL,
		otpLength:   otpLength,
		now:         time.Now,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Phone    string
	Address  string
	Password string
}

type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Register creates a user with a freshly allocated customer code. The code is
// drawn at random and retried when it collides with an existing one, so
// uniqueness is guaranteed by the store rather than assumed.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	phone := strings.TrimSpace(input.Phone)
	address := strings.TrimSpace(input.Address)

	if err := util.ValidatePassword(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordInvalid, err)
	}

	hash, salt, err := util.DeriveSecret(input.Password)
	if err != nil {
		return nil, fmt.Errorf("derive password: %w", err)
	}

	for attempt := 0; attempt < maxCustomerCodeAttempts; attempt++ {
		digits, err := util.GenerateDigits(customerCodeDigits)
		if err != nil {
			return nil, fmt.Errorf("generate customer code: %w", err)
		}
		code := customerCodePrefix + digits

		user, err := s.users.Create(ctx, code, username, email, phone, address, hash, salt)
		if err == nil {
			return user, nil
		}
		if isUniqueViolation(err, "customer_code") {
			continue
		}
		if isUniqueViolation(err, "") {
			return nil, ErrIdentityTaken
		}
		return nil, err
	}
	return nil, errors.New("exhausted customer code attempts")
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !util.VerifySecret(password, user.PasswordSalt, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := util.NewSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	expiresAt := s.now().Add(s.sessionTTL)
	if _, err := s.sessions.CreateSession(ctx, user.ID, token, expiresAt); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	session, err := s.sessions.FindActiveSession(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeactivateSession(ctx, token)
}

// RequestPasswordReset starts the reset flow: the ledger retires any
// outstanding code and stores a fresh one before delivery is attempted. When
// delivery fails the new code is retired too, so a failed request never
// leaves a live code the user cannot have received.
func (s *AuthService) RequestPasswordReset(ctx context.Context, phone string) error {
	user, err := s.users.FindByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	code, err := util.GenerateNumericOTP(s.otpLength)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, salt, err := util.DeriveSecret(code)
	if err != nil {
		return fmt.Errorf("derive code: %w", err)
	}

	reset, err := s.resets.Replace(ctx, user.ID, hash, salt, s.now().Add(s.otpTTL))
	if err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	if err := s.sender.SendResetCode(ctx, user.Phone, code); err != nil {
		if retireErr := s.resets.MarkUsed(ctx, reset.ID); retireErr != nil {
			log.Printf("retire undeliverable reset code %d: %v", reset.ID, retireErr)
		}
		return fmt.Errorf("%w: %v", ErrCodeDelivery, err)
	}
	return nil
}

// VerifyResetOTP consumes a matching code and returns a signed, short-lived
// reset token bound to both the user and the consumed code.
func (s *AuthService) VerifyResetOTP(ctx context.Context, phone, code string) (string, error) {
	user, err := s.users.FindByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	reset, err := s.resets.FindActiveByUser(ctx, user.ID, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrOTPInvalid
		}
		return "", err
	}
	if !util.VerifySecret(code, reset.OTPSalt, reset.OTPHash) {
		return "", ErrOTPInvalid
	}

	// Consume before handing out the token: a second verify with the same
	// code must fail.
	if err := s.resets.MarkUsed(ctx, reset.ID); err != nil {
		return "", fmt.Errorf("consume code: %w", err)
	}

	token, err := s.resetTokens.Generate(user.ID, reset.ID)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return token, nil
}

// CompleteReset finishes the flow. The token must name a consumed code whose
// reset has not been completed yet, which makes each token single-use. The
// password swap and the completion stamp land in one repository transaction,
// so a failure here leaves the old password in place and the reset still open.
func (s *AuthService) CompleteReset(ctx context.Context, token, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return fmt.Errorf("%w: passwords do not match", ErrPasswordInvalid)
	}
	if err := util.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordInvalid, err)
	}

	userID, otpID, err := s.resetTokens.Parse(token)
	if err != nil {
		return ErrResetTokenInvalid
	}

	reset, err := s.resets.FindByID(ctx, otpID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrResetTokenInvalid
		}
		return err
	}
	if reset.UserID != userID || !reset.Used || reset.CompletedAt != nil {
		return ErrResetTokenInvalid
	}

	hash, salt, err := util.DeriveSecret(newPassword)
	if err != nil {
		return fmt.Errorf("derive password: %w", err)
	}
	if err := s.resets.CompleteReset(ctx, userID, otpID, hash, salt, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("complete reset: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a postgres unique-constraint
// violation, optionally narrowed to constraints whose name contains the given
// fragment.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || strings.Contains(pgErr.ConstraintName, constraint)
}
