package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/giftops-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type runner interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger *logger.Logger
	// Dependencies are pinged in order before any consumer starts.
	Dependencies map[string]pinger
	Order        []string
	Consumers    map[string]runner
}

// Service runs the Pub/Sub consumers of the worker process until one of them
// fails or the context is canceled.
type Service struct {
	logg      *logger.Logger
	deps      map[string]pinger
	order     []string
	consumers map[string]runner
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	for _, name := range params.Order {
		if params.Dependencies[name] == nil {
			return nil, fmt.Errorf("%s dependency is required", name)
		}
	}
	return &Service{
		logg:      params.Logger,
		deps:      params.Dependencies,
		order:     params.Order,
		consumers: params.Consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, name := range s.order {
		if err := pingDependency(ctx, s.logg, name, s.deps[name].Ping); err != nil {
			return err
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type exit struct {
		name string
		err  error
	}
	errCh := make(chan exit, len(s.consumers))
	for name, consumer := range s.consumers {
		go func() {
			errCh <- exit{name: name, err: consumer.Run(runCtx)}
		}()
	}

	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	case res := <-errCh:
		if res.err != nil && !errors.Is(res.err, context.Canceled) {
			s.logg.Error(ctx, fmt.Sprintf("%s consumer stopped unexpectedly", res.name), res.err)
			return res.err
		}
		return res.err
	}
}
