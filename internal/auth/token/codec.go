package token

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind selects which credential a codec operation applies to.
// Access and refresh tokens are signed with distinct secrets, so a token of
// one kind can never verify as the other.
type Kind string

const (
	// KindAccess is the short-lived credential proving recent authentication.
	KindAccess Kind = "access"
	// KindRefresh is the long-lived credential used only to mint new pairs.
	KindRefresh Kind = "refresh"
)

// Payload is the identity material embedded in every token.
//
// Role and state travel as raw enum values so the codec stays independent
// of the auth package; callers convert on decode.
type Payload struct {
	UserID     int64
	Username   string
	RoleValue  int
	StateValue int

	// ExpiresAt is populated on decode from the token's own expiry.
	// It is ignored on issue; expiry is always computed from the kind TTL.
	ExpiresAt time.Time
}

// Pair is an access/refresh token pair minted together at login or rotation.
type Pair struct {
	Access           string
	Refresh          string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Config defines signing secrets and lifetimes for both token kinds.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	Issuer string

	// Leeway is the allowed clock skew during validation.
	Leeway time.Duration
}

// Codec issues and decodes signed tokens. It is stateless and safe for
// concurrent use.
type Codec struct {
	cfg Config
}

type claims struct {
	UserID     int64  `json:"uid"`
	Username   string `json:"username"`
	RoleValue  int    `json:"role"`
	StateValue int    `json:"state"`
	jwt.RegisteredClaims
}

// NewCodec validates the configuration and constructs a Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) < 32 || len(cfg.RefreshSecret) < 32 {
		return nil, fmt.Errorf("%w: secrets must be at least 32 bytes", ErrConfig)
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrConfig)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: TTLs must be positive", ErrConfig)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, fmt.Errorf("%w: leeway out of range", ErrConfig)
	}
	return &Codec{cfg: cfg}, nil
}

// Issue signs a token of the given kind embedding the payload, with expiry
// computed from the kind's TTL. Returns the token and its expiry.
func (c *Codec) Issue(p Payload, kind Kind) (string, time.Time, error) {
	secret, ttl, err := c.kindParams(kind)
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now().UTC()
	exp := now.Add(ttl)

	cl := claims{
		UserID:     p.UserID,
		Username:   p.Username,
		RoleValue:  p.RoleValue,
		StateValue: p.StateValue,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    c.cfg.Issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssuePair mints a fresh access+refresh pair for the same payload.
func (c *Codec) IssuePair(p Payload) (Pair, error) {
	access, accessExp, err := c.Issue(p, KindAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshExp, err := c.Issue(p, KindRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		Access:           access,
		Refresh:          refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Decode verifies signature and expiry with the kind-specific secret and
// returns the embedded payload.
//
// Errors are collapsed into the package taxonomy: ErrExpired,
// ErrInvalidSignature, or ErrMalformed for anything else.
func (c *Codec) Decode(tokenStr string, kind Kind) (Payload, error) {
	secret, _, err := c.kindParams(kind)
	if err != nil {
		return Payload{}, err
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.cfg.Leeway))
	}
	if c.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.cfg.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return Payload{}, classifyParseErr(err)
	}

	cl, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return Payload{}, ErrMalformed
	}

	p := Payload{
		UserID:     cl.UserID,
		Username:   cl.Username,
		RoleValue:  cl.RoleValue,
		StateValue: cl.StateValue,
	}
	if cl.ExpiresAt != nil {
		p.ExpiresAt = cl.ExpiresAt.Time
	}
	return p, nil
}

// IsValid is the non-throwing wrapper used for branch decisions.
func (c *Codec) IsValid(tokenStr string, kind Kind) bool {
	if tokenStr == "" {
		return false
	}
	_, err := c.Decode(tokenStr, kind)
	return err == nil
}

// AccessTTL exposes the configured access lifetime (for cookie expiry).
func (c *Codec) AccessTTL() time.Duration { return c.cfg.AccessTTL }

// RefreshTTL exposes the configured refresh lifetime (session TTL follows it).
func (c *Codec) RefreshTTL() time.Duration { return c.cfg.RefreshTTL }

func (c *Codec) kindParams(kind Kind) ([]byte, time.Duration, error) {
	switch kind {
	case KindAccess:
		return c.cfg.AccessSecret, c.cfg.AccessTTL, nil
	case KindRefresh:
		return c.cfg.RefreshSecret, c.cfg.RefreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown kind %q", ErrConfig, kind)
	}
}

func classifyParseErr(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
