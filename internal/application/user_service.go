package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/redis-task-tracker/internal/domain/entity"
	repo "github.com/oksasatya/redis-task-tracker/internal/domain/repository"
	"github.com/oksasatya/redis-task-tracker/internal/notify"
	"github.com/oksasatya/redis-task-tracker/pkg/helpers"
)

type Service struct {
	Repo   repo.UserRepository
	JWT    *helpers.JWTManager
	Gate   *Gate
	Events *notify.Emitter
	Logger *logrus.Logger
}

func NewService(repo repo.UserRepository, jwt *helpers.JWTManager, gate *Gate, events *notify.Emitter, logger *logrus.Logger) *Service {
	return &Service{
		Repo:   repo,
		JWT:    jwt,
		Gate:   gate,
		Events: events,
		Logger: logger,
	}
}

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Name     string `json:"name" binding:"required,max=255"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      entity.PublicUser `json:"user"`
}

// MeResponse describes the caller as seen by the token.
type MeResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Register creates the account and signs the caller in. An email that is
// already registered fails with ErrConflict and leaves that account untouched.
func (s *Service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	if err := checkStruct(&in); err != nil {
		return AuthResult{}, err
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return AuthResult{}, err
	}
	u, err := s.Repo.Create(ctx, &entity.User{Email: in.Email, Name: in.Name, Password: hash})
	if err != nil {
		return AuthResult{}, err
	}
	s.audit(ctx, u)
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("user registered")
	}
	return s.issue(u)
}

// Authenticate validates email/password and returns the user without issuing tokens.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	if err := checkStruct(&in); err != nil {
		return AuthResult{}, err
	}
	u, err := s.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return AuthResult{}, err
	}
	return s.issue(u)
}

// Me confirms the caller's account still exists.
func (s *Service) Me(ctx context.Context, ident Identity) (MeResponse, error) {
	if !ident.Valid() {
		return MeResponse{}, ErrUnauthenticated
	}
	ok, err := s.Repo.Exists(ctx, ident.UserID())
	if err != nil {
		return MeResponse{}, err
	}
	if !ok {
		return MeResponse{}, ErrUnauthenticated
	}
	return MeResponse{ID: ident.UserID(), Email: ident.Email()}, nil
}

// Logout revokes exactly the token the caller presented.
func (s *Service) Logout(ctx context.Context, ident Identity) error {
	if err := s.Gate.Revoke(ctx, ident); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", ident.UserID()).Info("user logged out")
	}
	return nil
}

func (s *Service) issue(u *entity.User) (AuthResult, error) {
	token, exp, err := s.JWT.Generate(u.ID, u.Email)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		}
		return AuthResult{}, err
	}
	return AuthResult{Token: token, ExpiresAt: exp, User: u.Public()}, nil
}

func (s *Service) audit(ctx context.Context, u *entity.User) {
	if s.Events == nil {
		return
	}
	ev, err := notify.NewEvent(entity.KindUser, notify.Created, u.ID, u.ID, nil, nil, u.CreatedAt)
	if err == nil {
		err = s.Events.AuditOnly(ctx, ev)
	}
	if err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("user audit failed")
	}
}
