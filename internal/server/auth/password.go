// Package auth provides password verification and cookie-backed sessions for
// the API server.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

var (
	// ErrInvalidCredentials is returned for an unknown user or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMalformedHash is returned when a stored hash cannot be decoded.
	ErrMalformedHash = errors.New("malformed password hash")
)

// HashPassword returns the encoded argon2id hash "salt:hash" of password.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return encodeHash(salt, hash), nil
}

func encodeHash(salt, hash []byte) string {
	return base64.RawStdEncoding.EncodeToString(salt) + ":" + base64.RawStdEncoding.EncodeToString(hash)
}

// VerifyPassword reports whether password matches the encoded hash.
func VerifyPassword(password, encoded string) (bool, error) {
	saltB64, hashB64, ok := strings.Cut(encoded, ":")
	if !ok {
		return false, ErrMalformedHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	want, err := base64.RawStdEncoding.DecodeString(hashB64)
	if err != nil {
		return false, fmt.Errorf("%w: hash: %v", ErrMalformedHash, err)
	}

	got := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// Users maps usernames to encoded password hashes.
type Users map[string]string

// ParseUsers parses "name:salt:hash" entries.
func ParseUsers(entries []string) (Users, error) {
	users := make(Users, len(entries))
	for _, e := range entries {
		name, hash, ok := strings.Cut(e, ":")
		if !ok || name == "" || !strings.Contains(hash, ":") {
			return nil, fmt.Errorf("invalid user entry %q: want name:salt:hash", e)
		}
		if _, dup := users[name]; dup {
			return nil, fmt.Errorf("duplicate user %q", name)
		}
		users[name] = hash
	}
	return users, nil
}

// dummyHash keeps the cost of rejecting an unknown user close to that of a
// wrong password.
var dummyHash = encodeHash(make([]byte, saltLen), make([]byte, argonKeyLen))

// Authenticate checks a username and password.
func (u Users) Authenticate(username, password string) error {
	encoded, ok := u[username]
	if !ok {
		VerifyPassword(password, dummyHash)
		return ErrInvalidCredentials
	}
	match, err := VerifyPassword(password, encoded)
	if err != nil {
		return fmt.Errorf("user %s: %w", username, err)
	}
	if !match {
		return ErrInvalidCredentials
	}
	return nil
}
