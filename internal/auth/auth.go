package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgrijalva/jwt-go"
)

// User is the authenticated caller. Courses created through the form are
// owned by UserID.
type User struct {
	UserID string
	Email  string
	Role   string
}

func (u User) ID() string { return u.UserID }

func (u User) IsInstructor() bool {
	return strings.EqualFold(u.Role, "instructor")
}

var ErrNoUserID = errors.New("auth: token has no user id claim")

// claim names, in lookup order. The long forms are what ASP.NET Identity
// puts in its tokens.
var (
	userIDClaims = []string{
		"userId", "UserId", "nameid", "sub",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier",
	}
	emailClaims = []string{
		"email",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress",
	}
	roleClaims = []string{
		"role",
		"http://schemas.microsoft.com/ws/2008/06/identity/claims/role",
	}
)

// FromToken extracts the user from a bearer token. With a non-empty secret
// the HS256 signature is verified; without one the claims are only decoded
// and the API remains the authority. Expired tokens are rejected either way.
func FromToken(token, secret string) (User, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return User{}, errors.New("auth: empty token")
	}

	claims := jwt.MapClaims{}
	if secret != "" {
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			return User{}, fmt.Errorf("auth: invalid token: %w", err)
		}
		if !parsed.Valid {
			return User{}, errors.New("auth: invalid token")
		}
	} else {
		if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
			return User{}, fmt.Errorf("auth: malformed token: %w", err)
		}
		if err := claims.Valid(); err != nil {
			return User{}, fmt.Errorf("auth: invalid token: %w", err)
		}
	}

	u := User{
		UserID: claimString(claims, userIDClaims...),
		Email:  claimString(claims, emailClaims...),
		Role:   claimString(claims, roleClaims...),
	}
	if u.UserID == "" {
		return User{}, ErrNoUserID
	}
	return u, nil
}

func claimString(c jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		v, ok := c[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64:
			// JSON numbers decode as float64; ids are integral
			s = fmt.Sprintf("%.0f", t)
		case []interface{}:
			if len(t) > 0 {
				s = fmt.Sprint(t[0])
			}
		default:
			s = fmt.Sprint(t)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
