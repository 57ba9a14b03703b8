// Package reassignment is the operations view over leads and sessions that
// lost their counselor.
package reassignment

import (
	"context"
	"fmt"

	"admissions-crm/db"
	"admissions-crm/logger"
	"admissions-crm/models"
	"admissions-crm/repository"
	"admissions-crm/services/assignment"
)

// AutoAssigner is satisfied by *assignment.Engine.
type AutoAssigner interface {
	AutoAssign(ctx context.Context, lead *models.Lead) (*models.Lead, assignment.Outcome, error)
}

// Dashboard is the operations summary.
type Dashboard struct {
	Presence             map[string]int `json:"presence"`
	PendingReassignments int            `json:"pending_reassignments"`
	UnassignedLeads      int            `json:"unassigned_leads"`
	StrandedLeads        int            `json:"stranded_leads"`
}

// AutoReassignResult counts the leads one AutoReassignUnassigned run saw.
type AutoReassignResult struct {
	Checked    int            `json:"checked"`
	Assigned   int            `json:"assigned"`
	Unassigned int            `json:"unassigned"`
	Leads      []*models.Lead `json:"leads"`
}

type Coordinator struct {
	repos  *repository.Repos
	engine AutoAssigner
}

func NewCoordinator(pool db.DBTX, engine AutoAssigner) *Coordinator {
	return &Coordinator{repos: repository.New(pool), engine: engine}
}

// PendingReassignments lists sessions cancelled with the reassignment
// marker, newest first.
func (c *Coordinator) PendingReassignments(ctx context.Context) ([]*repository.PendingReassignment, error) {
	return c.repos.Sessions.ListPendingReassignment(ctx)
}

// StrandedLeads lists open leads whose counselor is INACTIVE or offline.
func (c *Coordinator) StrandedLeads(ctx context.Context) ([]*models.Lead, error) {
	return c.repos.Leads.ListStranded(ctx)
}

// AutoReassignUnassigned runs auto-assignment over up to limit unassigned
// NEW leads, oldest first. A lead that fails is logged and skipped.
func (c *Coordinator) AutoReassignUnassigned(ctx context.Context, limit int) (*AutoReassignResult, error) {
	if limit <= 0 {
		limit = 50
	}
	leads, err := c.repos.Leads.List(ctx, repository.LeadFilter{
		Status:     models.LeadNew,
		Unassigned: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing unassigned leads: %w", err)
	}

	result := &AutoReassignResult{Leads: []*models.Lead{}}
	for _, lead := range leads {
		result.Checked++
		updated, out, err := c.engine.AutoAssign(ctx, lead)
		if err != nil {
			logger.Error("Auto reassignment failed for lead %d: %v", lead.ID, err)
			result.Unassigned++
			continue
		}
		if out.Kind == assignment.Assigned {
			result.Assigned++
			result.Leads = append(result.Leads, updated)
		} else {
			result.Unassigned++
		}
	}

	logger.Info("Auto reassignment: checked=%d assigned=%d unassigned=%d",
		result.Checked, result.Assigned, result.Unassigned)
	return result, nil
}

func (c *Coordinator) Dashboard(ctx context.Context) (*Dashboard, error) {
	presence, err := c.repos.Presence.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := c.repos.Sessions.ListPendingReassignment(ctx)
	if err != nil {
		return nil, err
	}
	unassigned, err := c.repos.Leads.CountUnassigned(ctx)
	if err != nil {
		return nil, err
	}
	stranded, err := c.repos.Leads.ListStranded(ctx)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Presence:             presence,
		PendingReassignments: len(pending),
		UnassignedLeads:      unassigned,
		StrandedLeads:        len(stranded),
	}, nil
}
