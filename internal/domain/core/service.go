package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"workzen/internal/domain/audit"
	"workzen/internal/domain/auth"
	"workzen/internal/platform/querier"
)

var validate = validator.New()

const (
	generatedPasswordLength = 12
	maxCodeAttempts         = 50
)

// AccountCreator provisions the login account that backs a new employee.
type AccountCreator interface {
	CreateAccount(ctx context.Context, q querier.Querier, email, passwordHash string, role auth.Role) (string, error)
}

type Service struct {
	Store      StoreAPI
	Accounts   AccountCreator
	Audit      audit.Logger
	CodePrefix string
	Now        func() time.Time
}

func NewService(store StoreAPI, accounts AccountCreator, logger audit.Logger) *Service {
	return &Service{Store: store, Accounts: accounts, Audit: logger, CodePrefix: DefaultCodePrefix, Now: time.Now}
}

func (s *Service) Get(ctx context.Context, actor auth.Principal, employeeID string) (Employee, error) {
	if err := auth.Require(actor, auth.ActionRead, auth.ResourceEmployee, employeeID); err != nil {
		return Employee{}, err
	}
	emp, err := s.Store.GetEmployee(ctx, employeeID)
	if err != nil {
		return Employee{}, err
	}
	FilterEmployeeFields(&emp, actor)
	return emp, nil
}

func (s *Service) List(ctx context.Context, actor auth.Principal, filter Filter) ([]Employee, int, error) {
	if _, err := auth.RequireScope(actor, auth.ActionRead, auth.ResourceEmployee); err != nil {
		return nil, 0, err
	}
	items, total, err := s.Store.ListEmployees(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		FilterEmployeeFields(&items[i], actor)
	}
	return items, total, nil
}

// Create adds an employee and its login account in one transaction. When no
// password is supplied a random one is generated and returned exactly once.
func (s *Service) Create(ctx context.Context, actor auth.Principal, in NewEmployee) (CreatedEmployee, error) {
	if err := auth.Require(actor, auth.ActionCreate, auth.ResourceEmployee, ""); err != nil {
		return CreatedEmployee{}, err
	}

	role := auth.RoleEmployee
	if in.Role != "" {
		parsed, err := auth.ParseRole(in.Role)
		if err != nil {
			return CreatedEmployee{}, err
		}
		role = parsed
	}
	// Granting any other role is an account-level change.
	if role != auth.RoleEmployee {
		if err := auth.Require(actor, auth.ActionCreate, auth.ResourceUserAccount, ""); err != nil {
			return CreatedEmployee{}, err
		}
	}

	if err := validateNewEmployee(in); err != nil {
		return CreatedEmployee{}, err
	}

	password := in.Password
	var generated string
	if password == "" {
		var err error
		generated, err = auth.GeneratePassword(generatedPasswordLength)
		if err != nil {
			return CreatedEmployee{}, err
		}
		password = generated
	} else if err := auth.ValidatePassword(password); err != nil {
		return CreatedEmployee{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return CreatedEmployee{}, err
	}

	emp := Employee{
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:         strings.TrimSpace(in.Phone),
		Department:    strings.TrimSpace(in.Department),
		JobPosition:   strings.TrimSpace(in.JobPosition),
		ManagerID:     in.ManagerID,
		Role:          string(role),
		DateOfJoining: in.DateOfJoining,
		BankAccount:   strings.TrimSpace(in.BankAccount),
		PAN:           strings.ToUpper(strings.TrimSpace(in.PAN)),
		Status:        EmployeeStatusActive,
	}

	err = s.Store.InTx(ctx, func(tx StoreAPI) error {
		code, err := s.nextCode(ctx, tx, emp)
		if err != nil {
			return err
		}
		emp.EmployeeCode = code

		userID, err := s.Accounts.CreateAccount(ctx, tx.Querier(), emp.Email, hash, role)
		if err != nil {
			return err
		}
		emp.UserID = userID

		id, err := tx.CreateEmployee(ctx, emp)
		if err != nil {
			return err
		}
		emp.ID = id

		return s.audit(ctx, tx.Querier(), audit.Entry{
			ActorID:    actor.UserID,
			Action:     "employee.create",
			EntityType: "employee",
			EntityID:   id,
			After:      map[string]string{"employeeCode": code, "email": emp.Email, "role": emp.Role},
		})
	})
	if err != nil {
		return CreatedEmployee{}, err
	}
	return CreatedEmployee{Employee: emp, TemporaryPassword: generated}, nil
}

func (s *Service) nextCode(ctx context.Context, tx StoreAPI, emp Employee) (string, error) {
	joined, err := tx.CountJoinedInYear(ctx, emp.DateOfJoining.Year())
	if err != nil {
		return "", err
	}
	for serial := joined + 1; serial <= joined+maxCodeAttempts; serial++ {
		code := GenerateEmployeeCode(s.CodePrefix, emp.FirstName, emp.LastName, emp.DateOfJoining, serial)
		exists, err := tx.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free employee code after %d attempts", maxCodeAttempts)
}

func (s *Service) Update(ctx context.Context, actor auth.Principal, employeeID string, in EmployeeUpdate) (Employee, error) {
	if err := auth.Require(actor, auth.ActionUpdate, auth.ResourceEmployee, employeeID); err != nil {
		return Employee{}, err
	}

	var updated Employee
	err := s.Store.InTx(ctx, func(tx StoreAPI) error {
		before, err := tx.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		after := applyUpdate(before, in)
		if err := validateEmployee(after); err != nil {
			return err
		}
		if after.ManagerID == after.ID {
			return ErrInvalidManager
		}
		if err := tx.UpdateEmployee(ctx, after); err != nil {
			return err
		}
		updated = after
		return s.audit(ctx, tx.Querier(), audit.Entry{
			ActorID:    actor.UserID,
			Action:     "employee.update",
			EntityType: "employee",
			EntityID:   employeeID,
			Before:     auditView(before),
			After:      auditView(after),
		})
	})
	if err != nil {
		return Employee{}, err
	}
	FilterEmployeeFields(&updated, actor)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Principal, employeeID string) error {
	if err := auth.Require(actor, auth.ActionDelete, auth.ResourceEmployee, employeeID); err != nil {
		return err
	}
	return s.Store.InTx(ctx, func(tx StoreAPI) error {
		before, err := tx.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		if before.UserID != "" && before.UserID == actor.UserID {
			return fmt.Errorf("%w: cannot delete own employee record", ErrInvalidEmployee)
		}
		if err := tx.DeleteEmployee(ctx, employeeID); err != nil {
			return err
		}
		return s.audit(ctx, tx.Querier(), audit.Entry{
			ActorID:    actor.UserID,
			Action:     "employee.delete",
			EntityType: "employee",
			EntityID:   employeeID,
			Before:     auditView(before),
		})
	})
}

func (s *Service) audit(ctx context.Context, q querier.Querier, e audit.Entry) error {
	if s.Audit == nil {
		return nil
	}
	if err := s.Audit.Log(ctx, q, e); err != nil {
		slog.Warn("audit "+e.Action+" failed", "entityId", e.EntityID, "err", err)
		return err
	}
	return nil
}

func applyUpdate(emp Employee, in EmployeeUpdate) Employee {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&emp.FirstName, in.FirstName)
	set(&emp.LastName, in.LastName)
	set(&emp.Phone, in.Phone)
	set(&emp.Department, in.Department)
	set(&emp.JobPosition, in.JobPosition)
	set(&emp.ManagerID, in.ManagerID)
	set(&emp.BankAccount, in.BankAccount)
	set(&emp.PAN, in.PAN)
	set(&emp.Status, in.Status)
	emp.PAN = strings.ToUpper(emp.PAN)
	return emp
}

// auditView keeps identifiers out of the audit trail.
func auditView(emp Employee) map[string]string {
	return map[string]string{
		"firstName":   emp.FirstName,
		"lastName":    emp.LastName,
		"phone":       emp.Phone,
		"department":  emp.Department,
		"jobPosition": emp.JobPosition,
		"managerId":   emp.ManagerID,
		"status":      emp.Status,
	}
}

func validateNewEmployee(in NewEmployee) error {
	if err := validate.Var(strings.TrimSpace(in.Email), "required,email"); err != nil {
		return fmt.Errorf("%w: invalid email", ErrInvalidEmployee)
	}
	if in.DateOfJoining.IsZero() {
		return fmt.Errorf("%w: date of joining is required", ErrInvalidEmployee)
	}
	return validateEmployee(Employee{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
		Status:    EmployeeStatusActive,
	})
}

func validateEmployee(emp Employee) error {
	if emp.FirstName == "" || emp.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidEmployee)
	}
	if err := validate.Var(emp.Phone, "omitempty,numeric,len=10"); err != nil {
		return fmt.Errorf("%w: phone must be 10 digits", ErrInvalidEmployee)
	}
	if emp.Status != EmployeeStatusActive && emp.Status != EmployeeStatusInactive {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEmployee, emp.Status)
	}
	return nil
}
