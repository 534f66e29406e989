package blob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Signer mints and verifies expiring playback URLs so recordings can be
// streamed without an authenticated API call.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer with the given shared secret and URL lifetime.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

func (s *Signer) mac(key string, expires int64) string {
	h := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(h, "%s\n%d", key, expires)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// SignedURL returns a relative playback URL for key, valid until the
// signer's TTL elapses.
func (s *Signer) SignedURL(key string) string {
	expires := s.now().Add(s.ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.mac(key, expires))
	return "/blobs/" + key + "?" + q.Encode()
}

// Verify checks the signature and expiry for key.
func (s *Signer) Verify(key, expiresParam, sig string) error {
	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		return fmt.Errorf("bad expiry: %w", ErrInvalidSignature)
	}
	if s.now().Unix() > expires {
		return fmt.Errorf("url expired: %w", ErrInvalidSignature)
	}
	want := s.mac(key, expires)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrInvalidSignature
	}
	return nil
}
