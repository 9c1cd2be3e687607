package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner creates and validates signed attachment download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a token granting download access to one attachment of one set.
func (s *SignedURLSigner) Generate(setID, attachmentID string) (string, time.Time, error) {
	if setID == "" || attachmentID == "" {
		return "", time.Time{}, fmt.Errorf("setID and attachmentID required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl)
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	subject := base64.RawURLEncoding.EncodeToString([]byte(setID + "/" + attachmentID))
	token := strings.Join([]string{subject, exp, s.sign(subject, exp)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded set and attachment ids.
func (s *SignedURLSigner) Parse(token string) (setID, attachmentID string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", "", time.Time{}, fmt.Errorf("invalid token format")
	}
	subject, exp, signature := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(s.sign(subject, exp)), []byte(signature)) {
		return "", "", time.Time{}, fmt.Errorf("invalid token signature")
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("invalid timestamp")
	}
	expiresAt = time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return "", "", time.Time{}, fmt.Errorf("token expired")
	}
	raw, err := base64.RawURLEncoding.DecodeString(subject)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode subject: %w", err)
	}
	ids := strings.SplitN(string(raw), "/", 2)
	if len(ids) != 2 || ids[0] == "" || ids[1] == "" {
		return "", "", time.Time{}, fmt.Errorf("invalid token subject")
	}
	return ids[0], ids[1], expiresAt, nil
}

func (s *SignedURLSigner) sign(subject, exp string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(subject + "|" + exp))
	return hex.EncodeToString(mac.Sum(nil))
}
