// api/service/access_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
	pdp_model "github.com/dev-mohitbeniwal/gatekeeper/api/pdp/model"
)

// Decider is the part of the decision engine the guard depends on.
type Decider interface {
	Evaluate(ctx context.Context, dc *pdp_model.DecisionContext) pdp_model.Decision
}

// RequestView is the slice of an inbound request the guard decides on.
type RequestView struct {
	Actor     *model.Actor
	Resource  *pdp_model.Resource
	PathID    string
	Method    string
	IPAddress string
	UserAgent string
}

type IAccessService interface {
	Authorize(ctx context.Context, view RequestView) bool
}

// AccessService turns a request into a decision context and asks the
// decision engine for a verdict.
type AccessService struct {
	decider Decider
	now     func() time.Time
}

func NewAccessService(decider Decider) *AccessService {
	return &AccessService{decider: decider, now: time.Now}
}

// WithClock replaces the clock used for the environment attributes.
func (s *AccessService) WithClock(now func() time.Time) *AccessService {
	s.now = now
	return s
}

// Authorize reports whether the request may proceed. Requests without an
// actor are always refused.
func (s *AccessService) Authorize(ctx context.Context, view RequestView) bool {
	if view.Actor == nil {
		logger.Debug("Access refused without an actor", zap.String("method", view.Method))
		return false
	}

	decision := s.decider.Evaluate(ctx, s.BuildDecisionContext(view))
	if !decision.Allowed() {
		logger.Info("Access denied",
			zap.String("actorID", view.Actor.ID),
			zap.String("method", view.Method),
			zap.String("resourceID", view.PathID),
			zap.String("policy", decision.PolicyName),
			zap.String("reason", decision.Reason))
		return false
	}
	return true
}

// BuildDecisionContext maps the request view onto decision attributes.
func (s *AccessService) BuildDecisionContext(view RequestView) *pdp_model.DecisionContext {
	now := s.now()
	dc := &pdp_model.DecisionContext{
		Action: view.Method,
		Environment: pdp_model.Environment{
			TimeOfDay: now.Format("15:04"),
			Date:      now.Format(time.DateOnly),
			IPAddress: view.IPAddress,
			UserAgent: view.UserAgent,
		},
	}

	if actor := view.Actor; actor != nil {
		dc.Subject = pdp_model.Subject{
			ID:             actor.ID,
			Role:           actor.PrimaryRole(),
			Roles:          actor.Roles,
			Permissions:    actor.Permissions,
			Department:     actor.Department,
			TenantID:       actor.TenantID,
			ClearanceLevel: actor.ClearanceLevel,
		}
	}

	switch {
	case view.Resource != nil:
		dc.Resource = view.Resource
	case view.PathID != "":
		dc.Resource = &pdp_model.Resource{ID: view.PathID}
	}
	return dc
}
