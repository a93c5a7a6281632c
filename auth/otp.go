package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"unihive/rdx"
	"unihive/utils"
)

// Purpose scopes a one-time code so a verification code cannot reset a password.
type Purpose string

const (
	PurposeVerify Purpose = "verify"
	PurposeReset  Purpose = "reset"
)

const (
	otpLength      = 6
	maxOTPAttempts = 5
)

var ErrInvalidOTP = errors.New("invalid or expired OTP")

type OTPStore interface {
	Issue(ctx context.Context, p Purpose, email string) (string, error)
	// Consume checks the code and deletes it on success.
	Consume(ctx context.Context, p Purpose, email, code string) error
}

// RedisOTPStore keeps codes under otp:<purpose>:<email> with a TTL.
type RedisOTPStore struct {
	TTL time.Duration
}

func otpKey(p Purpose, email string) string {
	return fmt.Sprintf("otp:%s:%s", p, email)
}

func attemptsKey(p Purpose, email string) string {
	return fmt.Sprintf("otp-attempts:%s:%s", p, email)
}

func (s RedisOTPStore) Issue(ctx context.Context, p Purpose, email string) (string, error) {
	code, err := utils.GenerateRandomDigitString(otpLength)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	if err := rdx.SetWithExpiry(ctx, otpKey(p, email), code, s.TTL); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	if _, err := rdx.RdxDel(ctx, attemptsKey(p, email)); err != nil {
		return "", fmt.Errorf("reset otp attempts: %w", err)
	}
	return code, nil
}

func (s RedisOTPStore) Consume(ctx context.Context, p Purpose, email, code string) error {
	n, err := rdx.RdxIncrWithExpiry(ctx, attemptsKey(p, email), s.TTL)
	if err != nil {
		return fmt.Errorf("count otp attempts: %w", err)
	}
	if n > maxOTPAttempts {
		// Too many guesses burn the code.
		_, _ = rdx.RdxDel(ctx, otpKey(p, email))
		return ErrInvalidOTP
	}

	stored, err := rdx.RdxGet(ctx, otpKey(p, email))
	if errors.Is(err, rdx.ErrMissing) {
		return ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrInvalidOTP
	}
	if _, err := rdx.RdxDel(ctx, otpKey(p, email), attemptsKey(p, email)); err != nil {
		return fmt.Errorf("clear otp: %w", err)
	}
	return nil
}
