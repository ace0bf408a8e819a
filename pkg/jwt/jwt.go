// Package jwt проверяет access-токены RS256, выпущенные внешним сервисом
// авторизации. Сервис магазина токены не выпускает: ему нужен только публичный ключ.
package jwt

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Роли пользователей.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

var (
	// ErrInvalidToken — подпись, срок действия или издатель не прошли проверку.
	ErrInvalidToken = errors.New("невалидный токен")
	// ErrTokenRevoked — токен отозван (logout, блокировка пользователя).
	ErrTokenRevoked = errors.New("токен отозван")
)

// Claims — данные access-токена.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// IsAdmin сообщает, есть ли у пользователя доступ к админским операциям.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Config — параметры Verifier.
type Config struct {
	PublicKeyPath string
	Issuer        string
}

// Verifier проверяет подпись и claims токена, а также отзыв через Blacklist.
type Verifier struct {
	publicKey *rsa.PublicKey
	issuer    string
	blacklist *Blacklist
}

// NewVerifier загружает публичный ключ из PEM файла.
func NewVerifier(cfg Config, blacklist *Blacklist) (*Verifier, error) {
	key, err := LoadPublicKey(cfg.PublicKeyPath)
	if err != nil {
		return nil, err
	}
	return NewVerifierWithKey(key, cfg.Issuer, blacklist), nil
}

// NewVerifierWithKey создаёт Verifier с уже загруженным ключом. blacklist может быть nil.
func NewVerifierWithKey(key *rsa.PublicKey, issuer string, blacklist *Blacklist) *Verifier {
	return &Verifier{publicKey: key, issuer: issuer, blacklist: blacklist}
}

// Verify разбирает токен и возвращает claims. Отозванные токены дают ErrTokenRevoked.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.publicKey, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: отсутствует идентификатор пользователя", ErrInvalidToken)
	}

	if v.blacklist == nil {
		return claims, nil
	}

	if claims.ID != "" {
		revoked, err := v.blacklist.Check(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	if claims.IssuedAt != nil {
		invalidated, err := v.blacklist.IsUserInvalidated(ctx, claims.UserID, claims.IssuedAt.Time)
		if err != nil {
			return nil, err
		}
		if invalidated {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// LoadPublicKey читает RSA публичный ключ (PKIX или PKCS#1) из PEM файла.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}
	return ParsePublicKey(data)
}

// ParsePublicKey разбирает PEM с RSA публичным ключом.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("не удалось декодировать PEM блок")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("ключ не является RSA публичным ключом")
	}
	return rsaKey, nil
}
