package transport

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PeekClaims decodes the bearer token without verifying its signature; the
// client only needs to read its own claims, verification is the server's job.
func PeekClaims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("unable to parse token: %v", err)
	}
	return claims, nil
}

func TokenExpiry(token string) (time.Time, error) {
	claims, err := PeekClaims(token)
	if err != nil {
		return time.Time{}, err
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}, fmt.Errorf("token did not carry an expiry")
	}
	return expiry.Time, nil
}

func TokenSubject(token string) (string, error) {
	claims, err := PeekClaims(token)
	if err != nil {
		return "", err
	}
	subject, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("token did not carry a subject: %v", err)
	}
	return subject, nil
}
