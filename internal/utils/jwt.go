package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	jwtSecret   []byte
	jwtIssuer   string
	jwtAudience string
)

// UserMetadata is the profile block the hosted auth service embeds in
// its access tokens.
type UserMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Claims are the access token claims issued by the hosted auth service.
// The user id is the standard "sub" claim.
type Claims struct {
	Email        string       `json:"email"`
	Role         string       `json:"role,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string {
	return c.Subject
}

func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

// SetJWTValidation sets the optional issuer and audience checks. Empty
// values disable the check.
func SetJWTValidation(issuer, audience string) {
	jwtIssuer = issuer
	jwtAudience = audience
}

// GenerateToken signs a token shaped like the auth service's. Used by
// tests and the devtoken command.
func GenerateToken(userID, email, fullName string, expireHours int) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  "authenticated",
		UserMetadata: UserMetadata{
			FullName: fullName,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    jwtIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if jwtAudience != "" {
		claims.Audience = jwt.ClaimStrings{jwtAudience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ParseToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if jwtIssuer != "" {
		opts = append(opts, jwt.WithIssuer(jwtIssuer))
	}
	if jwtAudience != "" {
		opts = append(opts, jwt.WithAudience(jwtAudience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
