package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/PaulBabatuyi/files-manager/internal/access"
	"github.com/PaulBabatuyi/files-manager/internal/common"
	"github.com/PaulBabatuyi/files-manager/internal/models"
	"github.com/PaulBabatuyi/files-manager/internal/tokens"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type UserDatabase interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	EnqueueJob(ctx context.Context, kind models.JobKind, userID, fileID string, maxAttempts int) (int64, error)
}

type UserService struct {
	database    UserDatabase
	tokens      tokens.Store
	maxAttempts int
	logger      *zap.Logger
}

func NewUserService(db UserDatabase, store tokens.Store, maxAttempts int, logger *zap.Logger) *UserService {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &UserService{
		database:    db,
		tokens:      store,
		maxAttempts: maxAttempts,
		logger:      logger.Named("users"),
	}
}

// Register creates an account and queues the welcome job.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" {
		return nil, common.MissingField("email")
	}
	if password == "" {
		return nil, common.MissingField("password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{Email: email, PasswordHash: hash}
	if err := s.database.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID))

	if _, err := s.database.EnqueueJob(ctx, models.JobWelcome, u.ID, "", s.maxAttempts); err != nil {
		s.logger.Warn("failed to enqueue welcome job", zap.String("user_id", u.ID), zap.Error(err))
	}
	return u, nil
}

// Connect checks the credentials and issues a token. Any mismatch is
// reported as common.ErrUnauthorized.
func (s *UserService) Connect(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", common.ErrUnauthorized
	}
	u, err := s.database.GetUserByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		return "", common.ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return "", common.ErrUnauthorized
	}

	token, err := s.tokens.Issue(ctx, u.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func (s *UserService) Disconnect(ctx context.Context, token string) error {
	if token == "" {
		return common.ErrUnauthorized
	}
	err := s.tokens.Revoke(ctx, token)
	if errors.Is(err, tokens.ErrUnknownToken) {
		return common.ErrUnauthorized
	}
	return err
}

func (s *UserService) Me(ctx context.Context, id access.Identity) (*models.User, error) {
	if id.IsAnonymous() {
		return nil, common.ErrUnauthorized
	}
	u, err := s.database.GetUserByID(ctx, id.UserID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrUnauthorized
	}
	return u, err
}
