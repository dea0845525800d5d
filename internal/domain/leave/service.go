package leave

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"workzen/internal/domain/audit"
	"workzen/internal/domain/auth"
)

// DecisionRecorder counts approvals and rejections.
type DecisionRecorder interface {
	LeaveDecided(status string)
}

type Service struct {
	Store    StoreAPI
	Audit    audit.Logger
	Metrics  DecisionRecorder
	Location *time.Location
	Now      func() time.Time
}

func NewService(store StoreAPI, logger audit.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{Store: store, Audit: logger, Location: loc, Now: time.Now}
}

func (s *Service) today() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return dateOnly(now().In(s.Location))
}

// Submit files a Pending request for the caller. The employee row is locked
// so a concurrent approval cannot slip in between the check and the insert.
func (s *Service) Submit(ctx context.Context, actor auth.Principal, in NewRequest) (Request, error) {
	if err := auth.Require(actor, auth.ActionCreate, auth.ResourceLeave, actor.EmployeeID); err != nil {
		return Request{}, err
	}
	in.LeaveType = strings.TrimSpace(in.LeaveType)
	in.Reason = strings.TrimSpace(in.Reason)
	in.StartDate, in.EndDate = dateOnly(in.StartDate), dateOnly(in.EndDate)
	if !ValidType(in.LeaveType) {
		return Request{}, fmt.Errorf("%w: %q", ErrInvalidLeaveType, in.LeaveType)
	}
	if in.EndDate.Before(in.StartDate) {
		return Request{}, ErrInvalidDateRange
	}
	if in.StartDate.Before(s.today()) {
		return Request{}, ErrStartInPast
	}

	var created Request
	err := s.Store.InTx(ctx, func(tx StoreAPI) error {
		if err := tx.LockEmployee(ctx, actor.EmployeeID); err != nil {
			return err
		}
		overlap, err := tx.HasApprovedOverlap(ctx, actor.EmployeeID, in.StartDate, in.EndDate, "")
		if err != nil {
			return err
		}
		if overlap {
			return ErrOverlappingLeave
		}
		id, err := tx.CreateRequest(ctx, actor.EmployeeID, in)
		if err != nil {
			return err
		}
		created, err = tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		return s.audit(ctx, tx, audit.Entry{
			ActorID:    actor.UserID,
			Action:     "leave.submit",
			EntityType: "leave_request",
			EntityID:   id,
			After:      created,
		})
	})
	if err != nil {
		return Request{}, err
	}
	return created, nil
}

func (s *Service) Approve(ctx context.Context, actor auth.Principal, id, note string) (Request, error) {
	return s.Decide(ctx, actor, id, Decision{Status: StatusApproved, Note: note})
}

func (s *Service) Reject(ctx context.Context, actor auth.Principal, id, note string) (Request, error) {
	return s.Decide(ctx, actor, id, Decision{Status: StatusRejected, Note: note})
}

// Decide approves or rejects a Pending request.
func (s *Service) Decide(ctx context.Context, actor auth.Principal, id string, d Decision) (Request, error) {
	if d.Status != StatusApproved && d.Status != StatusRejected {
		return Request{}, fmt.Errorf("%w: %q", ErrInvalidDecision, d.Status)
	}
	req, err := s.transition(ctx, actor, id, d, auth.ActionUpdate, "leave."+strings.ToLower(d.Status), CanTransition)
	if err != nil {
		return Request{}, err
	}
	if s.Metrics != nil {
		s.Metrics.LeaveDecided(d.Status)
	}
	return req, nil
}

// Override lets an administrator force a decided request to Approved or
// Rejected. Approval still honours the no-overlap rule.
func (s *Service) Override(ctx context.Context, actor auth.Principal, id string, d Decision) (Request, error) {
	if d.Status != StatusApproved && d.Status != StatusRejected {
		return Request{}, fmt.Errorf("%w: %q", ErrInvalidDecision, d.Status)
	}
	return s.transition(ctx, actor, id, d, auth.ActionOverride, "leave.override", CanOverride)
}

func (s *Service) transition(ctx context.Context, actor auth.Principal, id string, d Decision, action auth.Action, auditAction string, allowed func(from, to string) bool) (Request, error) {
	var after Request
	err := s.Store.InTx(ctx, func(tx StoreAPI) error {
		before, err := tx.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Require(actor, action, auth.ResourceLeave, before.EmployeeID); err != nil {
			return err
		}
		if !allowed(before.Status, d.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, before.Status, d.Status)
		}
		if d.Status == StatusApproved {
			if err := tx.LockEmployee(ctx, before.EmployeeID); err != nil {
				return err
			}
			overlap, err := tx.HasApprovedOverlap(ctx, before.EmployeeID, before.StartDate, before.EndDate, before.ID)
			if err != nil {
				return err
			}
			if overlap {
				return ErrOverlappingLeave
			}
		}
		if err := tx.UpdateStatus(ctx, id, d.Status, actor.UserID, strings.TrimSpace(d.Note)); err != nil {
			return err
		}
		after, err = tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		return s.audit(ctx, tx, audit.Entry{
			ActorID:    actor.UserID,
			Action:     auditAction,
			EntityType: "leave_request",
			EntityID:   id,
			Before:     map[string]string{"status": before.Status},
			After:      map[string]string{"status": after.Status, "note": after.DecisionNote},
		})
	})
	if err != nil {
		return Request{}, err
	}
	return after, nil
}

// Cancel withdraws the caller's own Pending request.
func (s *Service) Cancel(ctx context.Context, actor auth.Principal, id string) (Request, error) {
	var after Request
	err := s.Store.InTx(ctx, func(tx StoreAPI) error {
		before, err := tx.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Require(actor, auth.ActionCreate, auth.ResourceLeave, before.EmployeeID); err != nil {
			return err
		}
		if !CanTransition(before.Status, StatusCancelled) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, before.Status, StatusCancelled)
		}
		if err := tx.UpdateStatus(ctx, id, StatusCancelled, "", before.DecisionNote); err != nil {
			return err
		}
		after, err = tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		return s.audit(ctx, tx, audit.Entry{
			ActorID:    actor.UserID,
			Action:     "leave.cancel",
			EntityType: "leave_request",
			EntityID:   id,
			Before:     map[string]string{"status": before.Status},
			After:      map[string]string{"status": after.Status},
		})
	})
	if err != nil {
		return Request{}, err
	}
	return after, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	return s.Store.InTx(ctx, func(tx StoreAPI) error {
		before, err := tx.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Require(actor, auth.ActionDelete, auth.ResourceLeave, before.EmployeeID); err != nil {
			return err
		}
		if err := tx.DeleteRequest(ctx, id); err != nil {
			return err
		}
		return s.audit(ctx, tx, audit.Entry{
			ActorID:    actor.UserID,
			Action:     "leave.delete",
			EntityType: "leave_request",
			EntityID:   id,
			Before:     before,
		})
	})
}

func (s *Service) Get(ctx context.Context, actor auth.Principal, id string) (Request, error) {
	req, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if err := auth.Require(actor, auth.ActionRead, auth.ResourceLeave, req.EmployeeID); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (s *Service) List(ctx context.Context, actor auth.Principal, filter Filter) (RequestListResult, error) {
	scope, err := auth.RequireScope(actor, auth.ActionRead, auth.ResourceLeave)
	if err != nil {
		return RequestListResult{}, err
	}
	if scope == auth.ScopeOwn {
		filter.EmployeeID = actor.EmployeeID
	}
	return s.Store.ListRequests(ctx, filter)
}

// ApprovedDays is the leave fact consumed by payroll.
func (s *Service) ApprovedDays(ctx context.Context, actor auth.Principal, employeeID string, from, to time.Time) (int, error) {
	if err := auth.Require(actor, auth.ActionRead, auth.ResourceLeave, employeeID); err != nil {
		return 0, err
	}
	return s.Store.ApprovedDays(ctx, employeeID, from, to)
}

func (s *Service) audit(ctx context.Context, tx StoreAPI, e audit.Entry) error {
	if s.Audit == nil {
		return nil
	}
	if err := s.Audit.Log(ctx, tx.Querier(), e); err != nil {
		slog.Warn("audit "+e.Action+" failed", "entityId", e.EntityID, "err", err)
		return err
	}
	return nil
}
