// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/thejerf/suture/v4"
	"golang.org/x/time/rate"

	"github.com/tomtom215/cinerec/internal/events"
	"github.com/tomtom215/cinerec/internal/metrics"
	"github.com/tomtom215/cinerec/internal/recommend"
)

// RetrainEngine is the part of recommend.Engine the retrain service drives.
type RetrainEngine interface {
	Retrain(ctx context.Context, trigger string) (*recommend.TrainingStatus, error)
	Ready() bool
	Status() recommend.Status
}

// RetrainSource delivers retrain requests. Satisfied by *events.Bus.
type RetrainSource interface {
	SubscribeRetrain(ctx context.Context) (<-chan *message.Message, error)
}

// RetrainServiceConfig holds configuration for the retrain service.
type RetrainServiceConfig struct {
	// TrainOnStartup trains once on start when no snapshot is installed.
	TrainOnStartup bool

	// Interval retrains periodically while feedback is pending. 0 disables.
	Interval time.Duration

	// MinGap is the minimum time between event-driven retrains.
	MinGap time.Duration

	// RetryDelay is how long to wait before retrying an event that found
	// a training already running. Default: 1s
	RetryDelay time.Duration

	// TrainTimeout bounds a single training run. Default: 30m
	TrainTimeout time.Duration

	// BreakerFailures opens the circuit after this many consecutive
	// training failures. Default: 3
	BreakerFailures uint32

	// BreakerTimeout is how long the circuit stays open. Default: 5m
	BreakerTimeout time.Duration
}

func (c *RetrainServiceConfig) applyDefaults() {
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.TrainTimeout <= 0 {
		c.TrainTimeout = 30 * time.Minute
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 3
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = 5 * time.Minute
	}
}

const retrainBreakerName = "retrain"

// RetrainService trains the model in the background: once on startup if
// nothing is installed or merged feedback is untrained, on every retrain
// event from the bus, and on an optional interval while feedback is
// pending or a retrain is due. Training goes through a
// circuit breaker so a persistently failing build stops hammering the
// store.
type RetrainService struct {
	engine  RetrainEngine
	source  RetrainSource
	config  RetrainServiceConfig
	breaker *gobreaker.CircuitBreaker[*recommend.TrainingStatus]
	limiter *rate.Limiter
	logger  zerolog.Logger
	name    string
}

// NewRetrainService creates the service. source may be nil, in which case
// only startup and interval training run.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRetrainService(engine RetrainEngine, source RetrainSource, cfg RetrainServiceConfig, logger zerolog.Logger) *RetrainService {
	cfg.applyDefaults()

	limit := rate.Inf
	if cfg.MinGap > 0 {
		limit = rate.Every(cfg.MinGap)
	}

	s := &RetrainService{
		engine:  engine,
		source:  source,
		config:  cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With().Str("service", "retrain").Logger(),
		name:    "retrain-service",
	}

	s.breaker = gobreaker.NewCircuitBreaker[*recommend.TrainingStatus](gobreaker.Settings{
		Name:        retrainBreakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			// Contention and shutdown say nothing about the build itself.
			return err == nil ||
				errors.Is(err, recommend.ErrTrainingInProgress) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("retrain circuit breaker state change")
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})

	return s
}

// Serve implements suture.Service.
func (s *RetrainService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.config.TrainOnStartup).
		Dur("interval", s.config.Interval).
		Dur("min_gap", s.config.MinGap).
		Msg("retrain service starting")

	// Subscribe before any training so events published meanwhile queue
	// on the subscription.
	var msgs <-chan *message.Message
	if s.source != nil {
		var err error
		msgs, err = s.source.SubscribeRetrain(ctx)
		if err != nil {
			return fmt.Errorf("subscribe retrain events: %w", err)
		}
	}

	switch {
	case s.config.TrainOnStartup && !s.engine.Ready():
		s.logger.Info().Msg("no model installed, training on startup")
		s.startupTrain(ctx)
	case s.engine.Status().RetrainDue:
		s.logger.Info().Msg("merged feedback not yet trained, training on startup")
		s.startupTrain(ctx)
	}

	var tick <-chan time.Time
	if s.config.Interval > 0 {
		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// retry fires when an event arrived during a running training.
	var retry <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("retrain service shutting down")
			return ctx.Err()

		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return suture.ErrDoNotRestart
				}
				return errors.New("retrain event stream closed")
			}
			if s.handleEvent(ctx, msg, msgs) {
				retry = time.After(s.config.RetryDelay)
			}

		case <-retry:
			retry = nil
			if s.trainEvent(ctx, metrics.TriggerEvent) {
				retry = time.After(s.config.RetryDelay)
			}

		case <-tick:
			st := s.engine.Status()
			if st.Pending == 0 && !st.RetrainDue {
				continue
			}
			s.logger.Debug().
				Int("pending", st.Pending).
				Bool("retrain_due", st.RetrainDue).
				Msg("interval retrain triggered")
			if _, err := s.train(ctx, metrics.TriggerInterval); err != nil && ctx.Err() == nil {
				s.logger.Warn().Err(err).Msg("interval retrain failed")
			}
		}
	}
}

func (s *RetrainService) startupTrain(ctx context.Context) {
	if _, err := s.train(ctx, metrics.TriggerStartup); err != nil && ctx.Err() == nil {
		s.logger.Warn().Err(err).Msg("startup training failed, waiting for the next trigger")
	}
}

// handleEvent consumes one message plus any already queued behind it,
// then trains once for all of them. It reports whether the training must
// be retried because another run held the lock.
func (s *RetrainService) handleEvent(ctx context.Context, msg *message.Message, queued <-chan *message.Message) bool {
	batch := []*message.Message{msg}
drain:
	for {
		select {
		case next, ok := <-queued:
			if !ok {
				break drain
			}
			batch = append(batch, next)
		default:
			break drain
		}
	}

	valid := 0
	for _, m := range batch {
		evt, err := events.UnmarshalRetrainRequested(m.Payload)
		if err != nil {
			s.logger.Warn().Err(err).Str("message_uuid", m.UUID).Msg("dropping malformed retrain event")
			metrics.RecordRetrainEvent("dropped")
			m.Ack()
			continue
		}
		s.logger.Debug().
			Str("event_id", evt.EventID).
			Str("trigger", evt.Trigger).
			Int("merged", evt.Merged).
			Msg("retrain event received")
		valid++
		m.Ack()
		metrics.RecordRetrainEvent("consumed")
	}
	if valid == 0 {
		return false
	}
	if valid > 1 {
		s.logger.Debug().Int("events", valid).Msg("coalesced retrain events")
	}
	return s.trainEvent(ctx, metrics.TriggerEvent)
}

// trainEvent runs an event-driven training under the rate limit and
// reports whether it must be retried.
func (s *RetrainService) trainEvent(ctx context.Context, trigger string) bool {
	if err := s.limiter.Wait(ctx); err != nil {
		return false
	}
	_, err := s.train(ctx, trigger)
	switch {
	case err == nil:
		return false
	case errors.Is(err, recommend.ErrTrainingInProgress):
		s.logger.Debug().Dur("retry_in", s.config.RetryDelay).Msg("training already running, retrying event")
		return true
	case ctx.Err() != nil:
		return false
	default:
		s.logger.Warn().Err(err).Msg("event retrain failed")
		return false
	}
}

// train runs one retrain through the circuit breaker.
func (s *RetrainService) train(ctx context.Context, trigger string) (*recommend.TrainingStatus, error) {
	trainCtx, cancel := context.WithTimeout(ctx, s.config.TrainTimeout)
	defer cancel()

	status, err := s.breaker.Execute(func() (*recommend.TrainingStatus, error) {
		return s.engine.Retrain(trainCtx, trigger)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordBreakerRequest(retrainBreakerName, "rejected")
		s.logger.Warn().Str("trigger", trigger).Msg("retrain circuit open, skipping training")
		return nil, err
	case err != nil:
		metrics.RecordBreakerRequest(retrainBreakerName, "failure")
		return nil, err
	}
	metrics.RecordBreakerRequest(retrainBreakerName, "success")
	return status, nil
}

// BreakerState returns the retrain circuit state: closed, half-open or open.
func (s *RetrainService) BreakerState() string {
	return s.breaker.State().String()
}

// String implements fmt.Stringer for logging.
func (s *RetrainService) String() string {
	return s.name
}
