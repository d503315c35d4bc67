package auth

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a session token. The subject is the user id;
// an absent ExpiresAt means the token never expires.
type Claims struct {
	UserAgent string `json:"uag"`
	ClientIP  string `json:"cip"`
	jwt.RegisteredClaims
}

// Expired reports whether the token carries an expiration before now.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// TokenCodec mints and verifies HS256 session tokens. A token is valid only
// when re-minting its own decoded claims yields exactly the same string, so
// any change to header, payload encoding or signature is rejected.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secret []byte) *TokenCodec {
	return &TokenCodec{secret: secret, now: time.Now}
}

// NormalizeClaim returns the form in which s is stored in a token: invalid
// UTF-8 sequences become U+FFFD.
func NormalizeClaim(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// Mint issues a token for subject bound to the given device. expiresAt may
// be nil for a non-expiring token. String claims are stored normalized.
func (c *TokenCodec) Mint(subject, userAgent, clientIP string, expiresAt *time.Time) (string, error) {
	claims := &Claims{
		UserAgent: NormalizeClaim(userAgent),
		ClientIP:  NormalizeClaim(clientIP),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  NormalizeClaim(subject),
			IssuedAt: jwt.NewNumericDate(c.now()),
		},
	}
	if expiresAt != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*expiresAt)
	}
	return c.sign(claims)
}

// Verify decodes token and checks it against its re-minted form. Expiration
// is not enforced here; callers decide what an expired token means.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, common.ErrInvalidToken
	}

	expected, err := c.sign(claims)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

func (c *TokenCodec) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}
