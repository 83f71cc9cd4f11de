// Package security holds credential hashing and temporary password helpers.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"

	"github.com/aguasol/aguasol-backend/pkg/config"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

const hashPrefix = "$argon2id$v=19$"

var (
	// ErrInvalidHash signals a stored value that is not a PHC argon2id string.
	ErrInvalidHash = errors.New("invalid argon2id hash")

	errEmptyPassword = errors.New("password cannot be empty")
)

// argonParams are encoded into every hash so old hashes keep verifying after
// the configured cost changes.
type argonParams struct {
	memory  uint32
	passes  uint32
	threads uint8
	saltLen int
	keyLen  uint32
}

func paramsFor(cfg config.PasswordConfig) argonParams {
	return argonParams{
		memory:  uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		passes:  uint32(clamp(cfg.ArgonTime, 1, 10)),
		threads: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		saltLen: clamp(cfg.ArgonSaltLen, 8, 64),
		keyLen:  uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}
}

func (p argonParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.passes, p.memory, p.threads, p.keyLen)
}

// HashPassword returns a PHC formatted argon2id hash.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errEmptyPassword
	}
	p := paramsFor(cfg)
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("%sm=%d,t=%d,p=%d$%s$%s",
		hashPrefix, p.memory, p.passes, p.threads,
		b64.EncodeToString(salt), b64.EncodeToString(p.derive(password, salt)),
	), nil
}

// VerifyPassword reports whether password matches encoded. A malformed hash
// is an error, a mismatch is not.
func VerifyPassword(password, encoded string) (bool, error) {
	p, salt, want, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(want, p.derive(password, salt)) == 1, nil
}

// NeedsRehash reports whether encoded was produced with a different cost
// than cfg asks for. Callers rehash after a successful login.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	got, salt, key, err := parseHash(encoded)
	if err != nil {
		return true
	}
	want := paramsFor(cfg)
	return got.memory != want.memory ||
		got.passes != want.passes ||
		got.threads != want.threads ||
		len(salt) != want.saltLen ||
		uint32(len(key)) != want.keyLen
}

func parseHash(encoded string) (argonParams, []byte, []byte, error) {
	rest, ok := strings.CutPrefix(encoded, hashPrefix)
	if !ok {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 3 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	var p argonParams
	if _, err := fmt.Sscanf(fields[0], "m=%d,t=%d,p=%d", &p.memory, &p.passes, &p.threads); err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	if p.memory == 0 || p.passes == 0 || p.threads == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[1])
	if err != nil || len(salt) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[2])
	if err != nil || len(key) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	p.saltLen = len(salt)
	p.keyLen = uint32(len(key))
	return p, salt, key, nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// tempAlphabet leaves out characters that are easy to misread when a
// password is dictated over the phone.
const tempAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"

// GenerateTempPassword returns a random password for accounts created by an
// admin. It always contains a letter and a digit.
func GenerateTempPassword(length int) (string, error) {
	if length < 2 {
		return "", fmt.Errorf("temporary password length %d is too short", length)
	}
	for {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for i, b := range buf {
			// 256 is not a multiple of the alphabet size; the skew is
			// negligible for short-lived credentials.
			buf[i] = tempAlphabet[int(b)%len(tempAlphabet)]
		}
		if pw := string(buf); hasLetterAndDigit(pw) {
			return pw, nil
		}
	}
}

// ValidatePasswordStrength requires MinPasswordLength runes mixing letters
// and digits.
func ValidatePasswordStrength(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must have at least %d characters", MinPasswordLength)
	}
	if !hasLetterAndDigit(password) {
		return errors.New("password must mix letters and digits")
	}
	return nil
}

func hasLetterAndDigit(s string) bool {
	letter := strings.IndexFunc(s, unicode.IsLetter) >= 0
	digit := strings.IndexFunc(s, unicode.IsDigit) >= 0
	return letter && digit
}
