package auth

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// HashArgon2 writes a password in the legacy argon2id encoding.
func HashArgon2(password string) string {
	salt := make([]byte, argonSaltLen)
	_, _ = rand.Read(salt)
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash)
}

var VerifyPassword = verifyPassword

var DummyHash = dummyHash

// SetVerifier replaces the password check of s.
func (s *Service) SetVerifier(f func(password, encoded string) bool) {
	s.verify = f
}
