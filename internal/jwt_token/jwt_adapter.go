package jwttoken

import (
	"healthgate/internal/platform/middleware"
)

// MiddlewareAdapter adapts JWTService to the middleware.JWTValidator
// interface.
type MiddlewareAdapter struct {
	svc *JWTService
}

func NewMiddlewareAdapter(svc *JWTService) *MiddlewareAdapter {
	return &MiddlewareAdapter{svc: svc}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.svc.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		UserID: claims.UserID,
		Role:   claims.Role,
	}, nil
}
