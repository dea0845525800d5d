package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"workzen/internal/domain/audit"
	"workzen/internal/domain/auth"
)

// EventRecorder counts check-ins and check-outs.
type EventRecorder interface {
	AttendanceEvent(event string)
}

type Service struct {
	Store       StoreAPI
	Audit       audit.Logger
	Metrics     EventRecorder
	Location    *time.Location
	StandardDay time.Duration
	Now         func() time.Time
}

func NewService(store StoreAPI, logger audit.Logger, loc *time.Location, standardHours int) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		Store:       store,
		Audit:       logger,
		Location:    loc,
		StandardDay: time.Duration(standardHours) * time.Hour,
		Now:         time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) CheckIn(ctx context.Context, actor auth.Principal) (Record, error) {
	if err := auth.Require(actor, auth.ActionCreate, auth.ResourceAttendance, actor.EmployeeID); err != nil {
		return Record{}, err
	}
	at := s.now()
	day := CivilDate(at, s.Location)

	var rec Record
	err := s.Store.InTx(ctx, func(tx StoreAPI) error {
		_, err := tx.RecordForDate(ctx, actor.EmployeeID, day)
		if err == nil {
			return ErrAlreadyCheckedIn
		}
		if !errors.Is(err, ErrRecordNotFound) {
			return err
		}
		rec, err = tx.InsertCheckIn(ctx, actor.EmployeeID, day, at)
		return err
	})
	if err != nil {
		return Record{}, err
	}
	s.event("check_in")
	return rec, nil
}

func (s *Service) CheckOut(ctx context.Context, actor auth.Principal) (Record, error) {
	if err := auth.Require(actor, auth.ActionCreate, auth.ResourceAttendance, actor.EmployeeID); err != nil {
		return Record{}, err
	}
	at := s.now()
	day := CivilDate(at, s.Location)

	var rec Record
	err := s.Store.InTx(ctx, func(tx StoreAPI) error {
		open, err := tx.RecordForDate(ctx, actor.EmployeeID, day)
		if errors.Is(err, ErrRecordNotFound) {
			return ErrNoOpenCheckIn
		}
		if err != nil {
			return err
		}
		if open.CheckIn == nil || open.CheckOut != nil {
			return ErrNoOpenCheckIn
		}
		working, extra, err := WorkedMinutes(*open.CheckIn, at, s.StandardDay)
		if err != nil {
			return err
		}
		rec, err = tx.SaveCheckOut(ctx, open.ID, at, working, extra)
		return err
	})
	if err != nil {
		return Record{}, err
	}
	s.event("check_out")
	return rec, nil
}

// Today returns the caller's record for the current day, if any.
func (s *Service) Today(ctx context.Context, actor auth.Principal) (Record, error) {
	if err := auth.Require(actor, auth.ActionRead, auth.ResourceAttendance, actor.EmployeeID); err != nil {
		return Record{}, err
	}
	var rec Record
	err := s.Store.InTx(ctx, func(tx StoreAPI) error {
		var err error
		rec, err = tx.RecordForDate(ctx, actor.EmployeeID, CivilDate(s.now(), s.Location))
		return err
	})
	return rec, err
}

func (s *Service) Get(ctx context.Context, actor auth.Principal, id string) (Record, error) {
	rec, err := s.Store.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if err := auth.Require(actor, auth.ActionRead, auth.ResourceAttendance, rec.EmployeeID); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, actor auth.Principal, filter Filter) ([]Record, error) {
	scope, err := auth.RequireScope(actor, auth.ActionRead, auth.ResourceAttendance)
	if err != nil {
		return nil, err
	}
	if scope == auth.ScopeOwn {
		filter.EmployeeID = actor.EmployeeID
	}
	return s.Store.ListRecords(ctx, filter)
}

// Facts is the attendance summary consumed by payroll and reports.
func (s *Service) Facts(ctx context.Context, actor auth.Principal, employeeID string, from, to time.Time) (Facts, error) {
	if err := auth.Require(actor, auth.ActionRead, auth.ResourceAttendance, employeeID); err != nil {
		return Facts{}, err
	}
	return s.Store.Facts(ctx, employeeID, from, to)
}

// Update applies an HR correction and recomputes worked minutes.
func (s *Service) Update(ctx context.Context, actor auth.Principal, id string, in Correction) (Record, error) {
	var after Record
	err := s.Store.InTx(ctx, func(tx StoreAPI) error {
		before, err := tx.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Require(actor, auth.ActionUpdate, auth.ResourceAttendance, before.EmployeeID); err != nil {
			return err
		}
		after = before
		if in.CheckIn != nil {
			after.CheckIn = in.CheckIn
		}
		if in.CheckOut != nil {
			after.CheckOut = in.CheckOut
		}
		if in.Status != nil {
			if !ValidStatus(*in.Status) {
				return fmt.Errorf("%w: %q", ErrInvalidStatus, *in.Status)
			}
			after.Status = *in.Status
		}
		after.WorkingMinutes, after.ExtraMinutes = 0, 0
		if after.CheckIn != nil && after.CheckOut != nil {
			after.WorkingMinutes, after.ExtraMinutes, err = WorkedMinutes(*after.CheckIn, *after.CheckOut, s.StandardDay)
			if err != nil {
				return err
			}
		}
		if err := tx.UpdateRecord(ctx, after); err != nil {
			return err
		}
		return s.audit(ctx, tx, audit.Entry{
			ActorID:    actor.UserID,
			Action:     "attendance.update",
			EntityType: "attendance",
			EntityID:   id,
			Before:     before,
			After:      after,
		})
	})
	if err != nil {
		return Record{}, err
	}
	return after, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	return s.Store.InTx(ctx, func(tx StoreAPI) error {
		before, err := tx.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Require(actor, auth.ActionDelete, auth.ResourceAttendance, before.EmployeeID); err != nil {
			return err
		}
		if err := tx.DeleteRecord(ctx, id); err != nil {
			return err
		}
		return s.audit(ctx, tx, audit.Entry{
			ActorID:    actor.UserID,
			Action:     "attendance.delete",
			EntityType: "attendance",
			EntityID:   id,
			Before:     before,
		})
	})
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

func (s *Service) event(name string) {
	if s.Metrics != nil {
		s.Metrics.AttendanceEvent(name)
	}
}
