// Package service implements account signup and login.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"pipeline_crm_backend/internal/auth/password"
	"pipeline_crm_backend/internal/email"
	"pipeline_crm_backend/internal/leads/domain"
	"pipeline_crm_backend/internal/users/repository"
	"pipeline_crm_backend/platform/apperr"
	"pipeline_crm_backend/platform/config"
	"pipeline_crm_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type Service struct {
	repo *repository.Repository
	cfg  config.AuthServiceConfig
	mail email.Sender
	log  *logger.Logger
}

func New(repo *repository.Repository, cfg config.AuthServiceConfig, mail email.Sender, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, mail: mail, log: log}
}

type SignUpInput struct {
	Username  string
	Email     string
	Password  string
	Team      domain.Team
	IsManager bool
}

// SignUp creates an account and sends a welcome email. Email delivery failure
// does not fail signup.
func (s *Service) SignUp(ctx context.Context, input SignUpInput) (repository.User, error) {
	switch input.Team {
	case domain.TeamAdmin, domain.TeamSales, domain.TeamTech:
	default:
		return repository.User{}, apperr.Validation("unknown team")
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return repository.User{}, err
	}

	user, err := s.repo.Create(ctx, repository.CreateParams{
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Team:         input.Team,
		IsManager:    input.IsManager,
		PasswordHash: hash,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return repository.User{}, apperr.Conflict("an account with this email or username already exists")
		}
		return repository.User{}, err
	}

	if s.log != nil {
		s.log.AuthEvent("signup", user.Email, true, "")
	}
	if s.mail != nil {
		if err := s.mail.SendWelcomeEmail(ctx, user.Email, user.Username); err != nil && s.log != nil {
			s.log.Error("welcome email failed", "error", err, "email", user.Email)
		}
	}
	return user, nil
}

// SignIn verifies credentials and returns a signed access token.
func (s *Service) SignIn(ctx context.Context, emailAddr, plainPassword string) (string, repository.User, error) {
	user, err := s.repo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if s.log != nil {
			s.log.AuthEvent("login", emailAddr, false, "unknown email")
		}
		return "", repository.User{}, apperr.Unauthorized("invalid credentials")
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		if s.log != nil {
			s.log.AuthEvent("login", emailAddr, false, "wrong password")
		}
		return "", repository.User{}, apperr.Unauthorized("invalid credentials")
	}

	token, err := s.signAccessToken(user)
	if err != nil {
		return "", repository.User{}, err
	}

	if s.log != nil {
		s.log.AuthEvent("login", user.Email, true, "")
	}
	return token, user, nil
}

// signAccessToken issues the claims the auth middleware expects: sub, type,
// team and is_manager.
func (s *Service) signAccessToken(user repository.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":        user.ID.String(),
		"type":       "access",
		"team":       string(user.Team),
		"is_manager": user.IsManager,
		"exp":        now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":        now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}
