package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/frahmantamala/paylink/internal"
)

type RSATokenGenerator struct {
	privateKey  *rsa.PrivateKey
	publicKey   *rsa.PublicKey
	issuer      string
	merchantTTL time.Duration
	now         func() time.Time
}

func NewRSATokenGenerator(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, issuer string, merchantTTL time.Duration) *RSATokenGenerator {
	return &RSATokenGenerator{
		privateKey:  privateKey,
		publicKey:   publicKey,
		issuer:      issuer,
		merchantTTL: merchantTTL,
		now:         time.Now,
	}
}

// NewTokenGeneratorFromConfig parses the base64 PEM keys from the security section.
func NewTokenGeneratorFromConfig(cfg apperrors.SecurityConfig) (*RSATokenGenerator, error) {
	privateKey, err := cfg.GetPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}
	publicKey, err := cfg.GetPublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load public key: %w", err)
	}
	return NewRSATokenGenerator(privateKey, publicKey, cfg.JWTIssuer, cfg.MerchantTokenTTL), nil
}

// GenerateMerchantToken creates a token that authenticates merchant API calls.
func (g *RSATokenGenerator) GenerateMerchantToken(merchantID string) (string, time.Time, error) {
	now := g.now()
	expiresAt := now.Add(g.merchantTTL)
	claims := &Claims{
		Role: RoleMerchant,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   merchantID,
			Issuer:    g.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := g.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// GenerateDashboardToken creates a token that expires together with the
// dashboard session that authorized it.
func (g *RSATokenGenerator) GenerateDashboardToken(merchantID, paymentLinkID, sessionID string, expiresAt time.Time) (string, error) {
	claims := &Claims{
		Role:          RoleDashboard,
		PaymentLinkID: paymentLinkID,
		SessionID:     sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   merchantID,
			Issuer:    g.issuer,
			IssuedAt:  jwt.NewNumericDate(g.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return g.sign(claims)
}

func (g *RSATokenGenerator) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(g.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a token and returns its claims
func (g *RSATokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return g.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(g.issuer),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken.WithCause(err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
