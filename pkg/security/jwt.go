package security

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lk2023060901/xdooria-lobby/pkg/config"
)

// JWTConfig JWT 配置
type JWTConfig struct {
	// 对称签名密钥
	SecretKey string `mapstructure:"secret_key" json:"secret_key" yaml:"secret_key"`

	// 签名算法：HS256、HS384、HS512
	Algorithm string `mapstructure:"algorithm" json:"algorithm" yaml:"algorithm"`

	ExpiresIn time.Duration `mapstructure:"expires_in" json:"expires_in" yaml:"expires_in"`
	Issuer    string        `mapstructure:"issuer" json:"issuer" yaml:"issuer"`

	// 时钟偏差容忍
	Leeway time.Duration `mapstructure:"leeway" json:"leeway" yaml:"leeway"`

	TokenPrefix string `mapstructure:"token_prefix" json:"token_prefix" yaml:"token_prefix"`
	HeaderName  string `mapstructure:"header_name" json:"header_name" yaml:"header_name"`
}

// DefaultJWTConfig 返回默认 JWT 配置
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		Algorithm:   "HS256",
		ExpiresIn:   24 * time.Hour,
		Leeway:      30 * time.Second,
		TokenPrefix: "Bearer ",
		HeaderName:  "Authorization",
	}
}

// Claims 大厅令牌载荷，user_id 与 email 位于顶层
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Principal 已认证的调用方
type Principal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// JWTManager JWT 签发与校验
type JWTManager struct {
	config *JWTConfig
	method jwt.SigningMethod
	parser *jwt.Parser
	now    func() time.Time
}

// NewJWTManager 创建 JWT 管理器
func NewJWTManager(cfg *JWTConfig) (*JWTManager, error) {
	merged, err := config.MergeConfig(DefaultJWTConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if merged.SecretKey == "" {
		return nil, ErrSecretKeyEmpty
	}

	var method jwt.SigningMethod
	switch strings.ToUpper(merged.Algorithm) {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, errors.Wrapf(ErrAlgorithmInvalid, "unsupported algorithm %q", merged.Algorithm)
	}

	m := &JWTManager{config: merged, method: method, now: time.Now}
	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithLeeway(merged.Leeway),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)
	return m, nil
}

// Config 返回生效中的配置
func (m *JWTManager) Config() *JWTConfig {
	return m.config
}

// GenerateToken 为用户签发令牌
func (m *JWTManager) GenerateToken(userID, email string) (string, error) {
	if userID == "" {
		return "", ErrSubjectMissing
	}
	now := m.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.ExpiresIn)),
		},
		UserID: userID,
		Email:  email,
	}
	return jwt.NewWithClaims(m.method, claims).SignedString([]byte(m.config.SecretKey))
}

// ValidateToken 校验令牌（可带前缀）并返回载荷
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, m.config.TokenPrefix))
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	claims := &Claims{}
	token, err := m.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(m.config.SecretKey), nil
	})
	if err != nil {
		return nil, wrapError(err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" {
		return nil, ErrSubjectMissing
	}
	return claims, nil
}

// Authenticate 校验令牌并返回调用方身份
func (m *JWTManager) Authenticate(tokenString string) (Principal, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: claims.UserID, Email: claims.Email}, nil
}

func wrapError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotValidYet
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrAlgorithmMismatch
	default:
		return errors.Wrap(ErrTokenInvalid, err.Error())
	}
}
