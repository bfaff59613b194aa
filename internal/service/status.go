package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const pingTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Counter interface {
	CountUsers(ctx context.Context) (int64, error)
	CountFiles(ctx context.Context) (int64, error)
}

type Status struct {
	Redis bool `json:"redis"`
	DB    bool `json:"db"`
}

type Stats struct {
	Users int64 `json:"users"`
	Files int64 `json:"files"`
}

// StatusService reports backend liveness and global counts.
type StatusService struct {
	tokens   Pinger
	database Pinger
	counter  Counter
	logger   *zap.Logger
}

func NewStatusService(tokens, database Pinger, counter Counter, logger *zap.Logger) *StatusService {
	return &StatusService{
		tokens:   tokens,
		database: database,
		counter:  counter,
		logger:   logger.Named("status"),
	}
}

func (s *StatusService) Status(ctx context.Context) Status {
	return Status{
		Redis: s.alive(ctx, "tokens", s.tokens),
		DB:    s.alive(ctx, "database", s.database),
	}
}

func (s *StatusService) alive(ctx context.Context, name string, p Pinger) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		s.logger.Warn("backend unreachable", zap.String("backend", name), zap.Error(err))
		return false
	}
	return true
}

func (s *StatusService) Stats(ctx context.Context) (Stats, error) {
	users, err := s.counter.CountUsers(ctx)
	if err != nil {
		return Stats{}, err
	}
	files, err := s.counter.CountFiles(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Users: users, Files: files}, nil
}
