package users

import (
	"context"
	"log/slog"

	"github.com/districthq/districthq/internal/fieldacl"
	"github.com/districthq/districthq/internal/rbac"
)

// Service applies field access policy to user reads and writes.
type Service struct {
	repo       Repository
	controller *fieldacl.Controller
	logger     *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, controller *fieldacl.Controller, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, controller: controller, logger: logger}
}

// Get returns the user's record filtered down to the fields the actor
// may read.
func (s *Service) Get(ctx context.Context, actor *rbac.Actor, id int64) (map[string]any, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.controller.FilterFields(actor, fieldacl.EntityUser, u.Record(), u.ID), nil
}

// List returns filtered records for a page of users. Each record is
// filtered against its own owner, so an actor browsing the directory
// sees self-only fields on their own row and not on others.
func (s *Service) List(ctx context.Context, actor *rbac.Actor, limit, offset int) ([]map[string]any, error) {
	rows, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, u := range rows {
		out = append(out, s.controller.FilterFields(actor, fieldacl.EntityUser, u.Record(), u.ID))
	}
	return out, nil
}

// Update validates the proposed changes field by field and applies them
// only when every field passes. A rejected write performs no storage
// mutation at all.
func (s *Service) Update(ctx context.Context, actor *rbac.Actor, id int64, changes map[string]any) (fieldacl.WriteDecision, error) {
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fieldacl.WriteDecision{}, err
	}

	decision := s.controller.ValidateWrite(actor, fieldacl.EntityUser, changes, target.ID)
	if !decision.Valid {
		return decision, nil
	}
	if err := s.repo.UpdateFields(ctx, id, changes); err != nil {
		return fieldacl.WriteDecision{}, err
	}
	return decision, nil
}
