package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	sessionTokenBytes      = 32
	verificationTokenBytes = 32
	otpDigits              = 6
)

// GenerateOpaqueToken returns a random base64url token and its SHA-256 hash.
// Only the hash is persisted.
func GenerateOpaqueToken(length int) (string, []byte, error) {
	if length <= 0 {
		length = sessionTokenBytes
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(buf)
	return token, HashToken(token), nil
}

func GenerateSessionToken() (string, []byte, error) {
	return GenerateOpaqueToken(sessionTokenBytes)
}

func GenerateVerificationToken() (string, []byte, error) {
	return GenerateOpaqueToken(verificationTokenBytes)
}

func HashToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

// WellFormedToken reports whether s could have come from GenerateOpaqueToken.
// Lookups skip the database for anything else.
func WellFormedToken(s string) bool {
	if s == "" || len(s) > 128 {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}

// GenerateOTP returns a zero-padded 6 digit code from crypto/rand.
func GenerateOTP() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// ValidOTPFormat reports whether code is exactly six ASCII digits.
func ValidOTPFormat(code string) bool {
	if len(code) != otpDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// OTPHasher keys code hashes with a server-side pepper so a leaked table
// cannot be brute-forced over the small code space.
type OTPHasher struct {
	pepper []byte
}

func NewOTPHasher(pepper string) *OTPHasher {
	return &OTPHasher{pepper: []byte(pepper)}
}

func (h *OTPHasher) Hash(email string, code string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(email))
	mac.Write([]byte{':'})
	mac.Write([]byte(code))
	return mac.Sum(nil)
}

func (h *OTPHasher) Equal(a, b []byte) bool {
	return hmac.Equal(a, b)
}
