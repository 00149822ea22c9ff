package client

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceClaims 服務對服務呼叫的 token 內容
type ServiceClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// ServiceTokenSigner 簽發 HS256 服務 token
type ServiceTokenSigner struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ServiceID string
	Roles     []string
	TTL       time.Duration
	Now       func() time.Time
}

func (s *ServiceTokenSigner) Token() (string, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	issuedAt := now().UTC()

	claims := ServiceClaims{
		Roles: s.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.ServiceID,
			Issuer:    s.Issuer,
			Audience:  jwt.ClaimStrings{s.Audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	return token, nil
}
