package util

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const resetTokenPurpose = "password_reset"

// ResetTokenClaims bind a verified OTP to the user allowed to finish the
// password reset. The jti carries the consumed OTP row so the token can be
// rejected once that reset has completed.
type ResetTokenClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

type ResetTokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewResetTokenManager(secret string, ttl time.Duration) *ResetTokenManager {
	return &ResetTokenManager{secret: []byte(secret), ttl: ttl}
}

func (m *ResetTokenManager) Generate(userID uuid.UUID, otpID int64) (string, error) {
	now := time.Now()
	claims := ResetTokenClaims{
		Purpose: resetTokenPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        strconv.FormatInt(otpID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse validates the signature, expiry, and purpose, and returns the bound
// user and OTP row.
func (m *ResetTokenManager) Parse(tokenString string) (uuid.UUID, int64, error) {
	claims := &ResetTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return uuid.Nil, 0, err
	}
	if !token.Valid {
		return uuid.Nil, 0, errors.New("invalid token")
	}
	if claims.Purpose != resetTokenPurpose {
		return uuid.Nil, 0, errors.New("wrong token purpose")
	}
	if claims.ExpiresAt == nil || time.Now().After(claims.ExpiresAt.Time) {
		return uuid.Nil, 0, errors.New("token expired")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, 0, errors.New("malformed subject")
	}
	otpID, err := strconv.ParseInt(claims.ID, 10, 64)
	if err != nil {
		return uuid.Nil, 0, errors.New("malformed token id")
	}
	return userID, otpID, nil
}
