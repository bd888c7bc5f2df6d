package auth

import (
	"context"
)

type tokenParser interface {
	ParseAccessToken(raw string) (AccessClaims, error)
}

type Service struct {
	tokens tokenParser
}

func NewService(tokens tokenParser) *Service {
	return &Service{tokens: tokens}
}

func (s *Service) ValidateAccessToken(ctx context.Context, raw string) (AccessClaims, error) {
	if err := ctx.Err(); err != nil {
		return AccessClaims{}, err
	}
	if s.tokens == nil {
		return AccessClaims{}, ErrUnauthorized
	}
	return s.tokens.ParseAccessToken(raw)
}
