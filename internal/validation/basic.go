package validation

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// BasicAuthVerifier accepts HTTP Basic credentials whose password matches the bcrypt hash stored
// for the user.
type BasicAuthVerifier struct {
	users map[string][]byte
}

// NewBasicAuthVerifier takes a map of user name to bcrypt password hash.
func NewBasicAuthVerifier(users map[string]string) *BasicAuthVerifier {
	hashes := make(map[string][]byte, len(users))
	for user, hash := range users {
		hashes[user] = []byte(hash)
	}
	return &BasicAuthVerifier{users: hashes}
}

func (v *BasicAuthVerifier) Verify(_ context.Context, cred Credential) error {
	decoded, err := base64.StdEncoding.DecodeString(cred.Value)
	if err != nil {
		return ErrInvalidCredentials
	}
	user, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return ErrInvalidCredentials
	}
	hash, ok := v.users[user]
	if !ok {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// APIKeyVerifier accepts any of a fixed set of keys.
type APIKeyVerifier struct {
	keys [][]byte
}

func NewAPIKeyVerifier(keys ...string) *APIKeyVerifier {
	v := &APIKeyVerifier{}
	for _, k := range keys {
		v.keys = append(v.keys, []byte(k))
	}
	return v
}

func (v *APIKeyVerifier) Verify(_ context.Context, cred Credential) error {
	presented := []byte(cred.Value)
	for _, key := range v.keys {
		if subtle.ConstantTimeCompare(presented, key) == 1 {
			return nil
		}
	}
	return errors.New("unknown API key")
}
