// Package service implements the signup operations on top of the registry and
// wires their side effects: roster events, gauges, spans and operation metrics.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "activity-signups/internal/common/errors"
	"activity-signups/internal/common/logger"
	"activity-signups/internal/common/metrics"
	"activity-signups/internal/common/observability"
	"activity-signups/internal/models"
	"activity-signups/internal/registry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	OpList       = "list"
	OpSignup     = "signup"
	OpUnregister = "unregister"

	outcomeOK = "ok"
)

// Dispatcher receives roster events once a mutation has committed.
type Dispatcher interface {
	Dispatch(ctx context.Context, event models.RosterEvent)
}

type Dependencies struct {
	Registry      *registry.Registry
	Dispatcher    Dispatcher
	Observability *observability.Observability
	Logger        logger.Logger
}

type Service struct {
	registry   *registry.Registry
	dispatcher Dispatcher
	obs        *observability.Observability
	logger     logger.Logger
	now        func() time.Time
	newID      func() string
}

func New(deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	s := &Service{
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		obs:        deps.Observability,
		logger:     log.WithFields(map[string]interface{}{"component": "service"}),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.New().String() },
	}
	for name, a := range s.registry.List() {
		metrics.ActivityParticipants.WithLabelValues(name).Set(float64(len(a.Participants)))
	}
	return s
}

// ListActivities returns a snapshot of every activity.
func (s *Service) ListActivities(ctx context.Context) models.Activities {
	ctx, span := s.obs.StartSpan(ctx, "activities.list")
	start := time.Now()

	activities := s.registry.List()

	s.obs.RecordOperation(ctx, OpList, outcomeOK, time.Since(start))
	span.SetAttributes(attribute.Int("activities.count", len(activities)))
	observability.EndSpan(span, nil)
	return activities
}

// SignUp adds email to the named activity.
func (s *Service) SignUp(ctx context.Context, activity, email string) (*models.Confirmation, error) {
	return s.mutate(ctx, OpSignup, activity, email)
}

// Unregister removes email from the named activity.
func (s *Service) Unregister(ctx context.Context, activity, email string) (*models.Confirmation, error) {
	return s.mutate(ctx, OpUnregister, activity, email)
}

func (s *Service) mutate(ctx context.Context, op, activity, email string) (conf *models.Confirmation, err error) {
	ctx, span := s.obs.StartSpan(ctx, "activities."+op,
		attribute.String("activity", activity))
	start := time.Now()
	defer func() {
		outcome := outcomeOK
		if err != nil {
			outcome = string(apperrors.AsStandardError(err).Code)
		}
		s.obs.RecordOperation(ctx, op, outcome, time.Since(start))
		observability.EndSpan(span, err)
	}()

	if strings.TrimSpace(email) == "" {
		return nil, apperrors.NewMissingEmailError()
	}

	var (
		updated   models.Activity
		eventType models.RosterEventType
		message   string
	)
	switch op {
	case OpSignup:
		updated, err = s.registry.Signup(activity, email)
		eventType = models.RosterEventSignedUp
		message = fmt.Sprintf("Signed up %s for %s", email, activity)
	case OpUnregister:
		updated, err = s.registry.Unregister(activity, email)
		eventType = models.RosterEventUnregistered
		message = fmt.Sprintf("Unregistered %s from %s", email, activity)
	default:
		return nil, apperrors.NewInternalError(fmt.Errorf("unknown operation %q", op))
	}
	if err != nil {
		return nil, s.mapError(err, activity, email)
	}

	metrics.ActivityParticipants.WithLabelValues(activity).Set(float64(len(updated.Participants)))
	s.logger.Info("roster updated", map[string]interface{}{
		"operation":    op,
		"activity":     activity,
		"email":        email,
		"participants": len(updated.Participants),
	})

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, models.RosterEvent{
			ID:         s.newID(),
			Type:       eventType,
			Activity:   activity,
			Email:      email,
			OccurredAt: s.now(),
		})
	}

	return &models.Confirmation{Message: message}, nil
}

func (s *Service) mapError(err error, activity, email string) error {
	switch {
	case errors.Is(err, registry.ErrActivityNotFound):
		return apperrors.NewActivityNotFoundError(activity)
	case errors.Is(err, registry.ErrAlreadySignedUp):
		return apperrors.NewAlreadySignedUpError(activity, email)
	case errors.Is(err, registry.ErrNotSignedUp):
		return apperrors.NewNotSignedUpError(activity, email)
	case errors.Is(err, registry.ErrActivityFull):
		a, _ := s.registry.Get(activity)
		return apperrors.NewActivityFullError(activity, a.MaxParticipants)
	default:
		s.logger.Error("unexpected registry error", map[string]interface{}{
			"activity": activity,
			"error":    err,
		})
		return apperrors.NewInternalError(err)
	}
}
