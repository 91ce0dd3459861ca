package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dukapos/backend/internal/domain/identity"
	"github.com/dukapos/backend/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrUnknownRole      = errors.New("unknown role in claims")
	ErrMissingBranch    = errors.New("missing home_branch_id in claims")
)

// Claims are the custom claims carried by tokens from the authentication
// gateway. The subject is the operator ID.
type Claims struct {
	jwt.RegisteredClaims
	Role         string `json:"role"`
	HomeBranchID string `json:"home_branch_id"`
}

// Operator converts verified claims into the trusted identity triple
func (c *Claims) Operator() (identity.Operator, error) {
	operatorID, err := uuid.Parse(c.Subject)
	if err != nil {
		return identity.Operator{}, ErrInvalidClaims
	}

	role := identity.Role(c.Role)
	if !role.Valid() {
		return identity.Operator{}, ErrUnknownRole
	}

	if c.HomeBranchID == "" {
		return identity.Operator{}, ErrMissingBranch
	}
	branchID, err := uuid.Parse(c.HomeBranchID)
	if err != nil {
		return identity.Operator{}, ErrMissingBranch
	}

	return identity.Operator{
		ID:           operatorID,
		Role:         role,
		HomeBranchID: branchID,
	}, nil
}

// TokenVerifier verifies HS256 tokens issued by the authentication
// gateway. This service never issues tokens itself.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier creates a verifier from the JWT configuration
func NewTokenVerifier(cfg config.JWTConfig) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
	}
}

// Verify parses and validates a token and returns the operator it
// identifies.
func (v *TokenVerifier) Verify(tokenString string) (identity.Operator, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return v.secret, nil
		},
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return identity.Operator{}, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return identity.Operator{}, ErrTokenNotYetValid
		default:
			return identity.Operator{}, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return identity.Operator{}, ErrInvalidClaims
	}

	return claims.Operator()
}

// SignOperatorToken issues a token for the given operator. The gateway
// owns token issuance in production; this exists for tests and local
// development tooling.
func SignOperatorToken(cfg config.JWTConfig, operator identity.Operator, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    cfg.Issuer,
			Subject:   operator.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role:         string(operator.Role),
		HomeBranchID: operator.HomeBranchID.String(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}
