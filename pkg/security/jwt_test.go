package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, cfg *JWTConfig) *JWTManager {
	t.Helper()
	if cfg == nil {
		cfg = &JWTConfig{}
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = "lobby-secret"
	}
	m, err := NewJWTManager(cfg)
	require.NoError(t, err)
	return m
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := newManager(t, &JWTConfig{Issuer: "lobby"})

	token, err := m.GenerateToken("u-1", "player@example.com")
	require.NoError(t, err)

	p, err := m.Authenticate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "u-1", Email: "player@example.com"}, p)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "lobby", claims.Issuer)
	assert.Equal(t, "u-1", claims.Subject)
}

func TestJWTManager_ExternalTokenShape(t *testing.T) {
	m := newManager(t, nil)

	// 外部登录服务签发的令牌只带 user_id 与 email 顶层字段
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "ext-7",
		"email":   "ext@example.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	token, err := raw.SignedString([]byte("lobby-secret"))
	require.NoError(t, err)

	p, err := m.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "ext-7", p.UserID)
	assert.Equal(t, "ext@example.com", p.Email)
}

func TestJWTManager_Failures(t *testing.T) {
	m := newManager(t, &JWTConfig{ExpiresIn: time.Minute})
	token, err := m.GenerateToken("u-1", "")
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		_, err := m.ValidateToken("Bearer ")
		assert.ErrorIs(t, err, ErrTokenMissing)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := m.ValidateToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := newManager(t, &JWTConfig{SecretKey: "other"})
		_, err := other.ValidateToken(token)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		defer func() { m.now = time.Now }()
		_, err := m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("no user id", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "x@example.com"})
		s, err := raw.SignedString([]byte("lobby-secret"))
		require.NoError(t, err)
		_, err = m.ValidateToken(s)
		assert.ErrorIs(t, err, ErrSubjectMissing)
	})

	t.Run("algorithm not allowed", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"user_id": "u"})
		s, err := raw.SignedString([]byte("lobby-secret"))
		require.NoError(t, err)
		_, err = m.ValidateToken(s)
		assert.Error(t, err)
	})
}

func TestNewJWTManager_Config(t *testing.T) {
	_, err := NewJWTManager(&JWTConfig{})
	assert.ErrorIs(t, err, ErrSecretKeyEmpty)

	_, err = NewJWTManager(&JWTConfig{SecretKey: "k", Algorithm: "RS256"})
	assert.ErrorIs(t, err, ErrAlgorithmInvalid)
}
