package services

import (
	"context"
	"errors"
	"fmt"

	"financas/internal/core"
	"financas/internal/log"
)

// PlanManager manages the plans of one user.
type PlanManager struct {
	store    PlanStore
	user     core.User
	recorder Recorder
}

func NewPlanManager(store PlanStore, user core.User, recorder Recorder) *PlanManager {
	return &PlanManager{store: store, user: user, recorder: recorder}
}

// ListPlans returns the user's plans in creation order, never nil.
func (m *PlanManager) ListPlans(ctx context.Context) ([]core.Plan, error) {
	plans, err := m.store.ListPlans(ctx, m.user.ID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	if plans == nil {
		plans = []core.Plan{}
	}
	return plans, nil
}

// CreatePlan validates in and stores it. Invalid input returns a
// *core.ValidationError and stores nothing.
func (m *PlanManager) CreatePlan(ctx context.Context, in core.PlanInput) (core.Plan, error) {
	values, err := in.Validate()
	if err != nil {
		return core.Plan{}, err
	}
	p, err := m.store.CreatePlan(ctx, m.user.ID, values)
	if err != nil {
		return core.Plan{}, fmt.Errorf("create plan: %w", err)
	}
	m.changed(ctx, log.OpCreate, p.ID)
	return p, nil
}

// GetPlan returns one plan: core.ErrNotFound when it does not exist,
// core.ErrForbidden when another user owns it.
func (m *PlanManager) GetPlan(ctx context.Context, id int64) (core.Plan, error) {
	if err := m.checkOwner(ctx, id); err != nil {
		return core.Plan{}, err
	}
	return m.store.GetPlan(ctx, m.user.ID, id)
}

// EditPlan replaces a plan's fields. Ownership is checked before the input
// so a foreign plan yields core.ErrForbidden whatever was submitted. A stale
// in.Version yields core.ErrConflict.
func (m *PlanManager) EditPlan(ctx context.Context, id int64, in core.PlanInput) (core.Plan, error) {
	if err := m.checkOwner(ctx, id); err != nil {
		return core.Plan{}, err
	}
	values, err := in.Validate()
	if err != nil {
		return core.Plan{}, err
	}
	p, err := m.store.UpdatePlan(ctx, m.user.ID, id, in.Version, values)
	if err != nil {
		return core.Plan{}, err
	}
	m.changed(ctx, log.OpUpdate, id)
	return p, nil
}

// DeletePlan removes a plan. A second delete of the same id returns
// core.ErrNotFound.
func (m *PlanManager) DeletePlan(ctx context.Context, id int64) error {
	if err := m.checkOwner(ctx, id); err != nil {
		return err
	}
	if err := m.store.DeletePlan(ctx, m.user.ID, id); err != nil {
		return err
	}
	m.changed(ctx, log.OpDelete, id)
	return nil
}

func (m *PlanManager) checkOwner(ctx context.Context, id int64) error {
	owner, err := m.store.PlanOwner(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		return fmt.Errorf("plan %d owner: %w", id, err)
	}
	if owner != m.user.ID {
		log.FromContext(ctx).WithComponent(log.ComponentPlan).WarnContext(ctx, "Plan access denied",
			log.FieldPlanID, id, log.FieldUserID, m.user.ID)
		return fmt.Errorf("plan %d: %w", id, core.ErrForbidden)
	}
	return nil
}

func (m *PlanManager) changed(ctx context.Context, op string, id int64) {
	logger := log.FromContext(ctx).WithComponent(log.ComponentPlan)
	log.NewStructuredLogger(logger).LogPlanChanged(ctx, m.user.ID, id, op)
	if m.recorder != nil {
		m.recorder.PlanChanged(op)
	}
}
