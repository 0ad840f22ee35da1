package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/digitos-team/masala-software/pkg/logger"
)

type dependency struct {
	name string
	ping func(context.Context) error
}

// runner is a long-lived subscriber loop.
type runner interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies []dependency
	Consumers    map[string]runner
}

// Service checks its dependencies once and then runs every consumer until
// the first one fails or ctx is cancelled.
type Service struct {
	logg      *logger.Logger
	deps      []dependency
	consumers map[string]runner
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	for name, c := range params.Consumers {
		if c == nil {
			return nil, fmt.Errorf("consumer %s is nil", name)
		}
	}
	return &Service{
		logg:      params.Logger,
		deps:      params.Dependencies,
		consumers: params.Consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", dep.name), "dependency ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(s.consumers))
	for name, c := range s.consumers {
		go func() {
			s.logg.Info(s.logg.WithField(ctx, "consumer", name), "consumer started")
			if err := c.Run(ctx); err != nil {
				errCh <- fmt.Errorf("consumer %s: %w", name, err)
				return
			}
			errCh <- nil
		}()
	}

	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "consumer stopped unexpectedly", err)
			return err
		}
		if err == nil {
			// Receive returns nil only once its context is done
			return ctx.Err()
		}
		return err
	}
}
