package user

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash reports a stored hash that is not a well-formed PHC
// argon2id string.
var ErrInvalidHash = errors.New("user: invalid argon2id hash")

// Argon2idParams are the hashing cost parameters embedded in each PHC
// string, so old hashes stay verifiable after a cost bump.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams returns the current hashing costs.
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		MemoryKiB:   64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Verification refuses hashes claiming costs above these bounds, so a
// poisoned row cannot turn password checks into a memory bomb.
const (
	maxVerifyMemoryKiB  = 1 << 21 // 2 GiB
	maxVerifyIterations = 64
)

const (
	minPasswordLen = 8
	maxPasswordLen = 256
)

// HashPassword hashes a plaintext password into a PHC argon2id string.
func HashPassword(plain string, p Argon2idParams) (string, error) {
	if len(plain) < minPasswordLen {
		return "", fmt.Errorf("%w: password shorter than %d characters", ErrInvalidInput, minPasswordLen)
	}
	if len(plain) > maxPasswordLen {
		return "", fmt.Errorf("%w: password longer than %d characters", ErrInvalidInput, maxPasswordLen)
	}

	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plain), salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.MemoryKiB, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword checks a plaintext password against a PHC argon2id
// string in constant time over the derived keys.
func VerifyPassword(plain, encoded string) (bool, error) {
	p, salt, key, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(plain), salt, p.Iterations, p.MemoryKiB, p.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(got, key) == 1, nil
}

func decodePHC(encoded string) (Argon2idParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	var p Argon2idParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Iterations, &p.Parallelism); err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	if p.MemoryKiB == 0 || p.MemoryKiB > maxVerifyMemoryKiB ||
		p.Iterations == 0 || p.Iterations > maxVerifyIterations ||
		p.Parallelism == 0 {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < 8 {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) < 16 {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	return p, salt, key, nil
}
