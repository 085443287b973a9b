// Package auth holds the credential primitives of the session layer:
// password hashing and HTTP Basic credential parsing.
package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var errMalformedCredentials = errors.New("malformed credentials")

// prehash maps a password of any length to 44 bytes, below the bcrypt
// input limit of 72.
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(prehash(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), prehash(password)) == nil
}

// dummyHash is compared against on unknown emails so that a lookup miss
// costs as much as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword(prehash("files-manager"), bcrypt.DefaultCost)

// BurnCompare spends one bcrypt comparison and always fails.
func BurnCompare(password string) bool {
	_ = bcrypt.CompareHashAndPassword(dummyHash, prehash(password))
	return false
}

// ParseBasic decodes an "Authorization: Basic <base64(email:password)>"
// header value. The credential splits on the first colon only.
func ParseBasic(header string) (email, password string, err error) {
	scheme, encoded, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return "", "", errMalformedCredentials
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", errMalformedCredentials
	}

	email, password, ok = strings.Cut(string(raw), ":")
	if !ok || email == "" {
		return "", "", errMalformedCredentials
	}
	return email, password, nil
}
