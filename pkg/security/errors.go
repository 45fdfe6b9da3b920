package security

import "github.com/cockroachdb/errors"

// JWT 错误
var (
	ErrSecretKeyEmpty    = errors.New("security: secret key is empty")
	ErrTokenMissing      = errors.New("security: token is missing")
	ErrTokenInvalid      = errors.New("security: token is invalid")
	ErrTokenExpired      = errors.New("security: token has expired")
	ErrTokenNotValidYet  = errors.New("security: token is not valid yet")
	ErrTokenMalformed    = errors.New("security: token is malformed")
	ErrSignatureInvalid  = errors.New("security: signature is invalid")
	ErrAlgorithmInvalid  = errors.New("security: invalid algorithm")
	ErrAlgorithmMismatch = errors.New("security: algorithm mismatch")
	ErrSubjectMissing    = errors.New("security: user_id claim is missing")
)
