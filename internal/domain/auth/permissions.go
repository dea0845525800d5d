package auth

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin          Role = "Admin"
	RoleHROfficer      Role = "HR Officer"
	RolePayrollOfficer Role = "Payroll Officer"
	RoleEmployee       Role = "Employee"
)

var Roles = []Role{RoleAdmin, RoleHROfficer, RolePayrollOfficer, RoleEmployee}

func ParseRole(value string) (Role, error) {
	trimmed := strings.TrimSpace(value)
	for _, role := range Roles {
		if strings.EqualFold(trimmed, string(role)) {
			return role, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, value)
}

func (r Role) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Action string

const (
	ActionCreate   Action = "create"
	ActionRead     Action = "read"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionOverride Action = "override"
)

var Actions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionOverride}

type Resource string

const (
	ResourceEmployee    Resource = "employee"
	ResourceAttendance  Resource = "attendance"
	ResourceLeave       Resource = "leave"
	ResourcePayroll     Resource = "payroll"
	ResourceUserAccount Resource = "user_account"
	ResourceAuditLog    Resource = "audit_log"
)

var Resources = []Resource{ResourceEmployee, ResourceAttendance, ResourceLeave, ResourcePayroll, ResourceUserAccount, ResourceAuditLog}

// Scope narrows a grant. ScopeOwn limits the grant to records whose subject
// employee is the principal's own employee profile.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeOwn
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeOwn:
		return "own"
	case ScopeAll:
		return "all"
	default:
		return "none"
	}
}

type grants map[Role]Scope

var permissionTable = map[Resource]map[Action]grants{
	ResourceEmployee: {
		ActionCreate: {RoleAdmin: ScopeAll, RoleHROfficer: ScopeAll},
		ActionRead:   {RoleAdmin: ScopeAll, RoleHROfficer: ScopeAll, RolePayrollOfficer: ScopeAll, RoleEmployee: ScopeAll},
		ActionUpdate: {RoleAdmin: ScopeAll, RoleHROfficer: ScopeAll},
		ActionDelete: {RoleAdmin: ScopeAll},
	},
	ResourceAttendance: {
		ActionCreate: {RoleEmployee: ScopeOwn},
		ActionRead:   {RoleAdmin: ScopeAll, RoleHROfficer: ScopeAll, RolePayrollOfficer: ScopeAll, RoleEmployee: ScopeOwn},
		ActionUpdate: {RoleAdmin: ScopeAll, RoleHROfficer: ScopeAll},
		ActionDelete: {RoleAdmin: ScopeAll},
	},
	ResourceLeave: {
		ActionCreate:   {RoleEmployee: ScopeOwn},
		ActionRead:     {RoleAdmin: ScopeAll, RoleHROfficer: ScopeAll, RolePayrollOfficer: ScopeAll, RoleEmployee: ScopeOwn},
		ActionUpdate:   {RoleAdmin: ScopeAll, RolePayrollOfficer: ScopeAll},
		ActionDelete:   {RoleAdmin: ScopeAll},
		ActionOverride: {RoleAdmin: ScopeAll},
	},
	ResourcePayroll: {
		ActionCreate: {RoleAdmin: ScopeAll, RolePayrollOfficer: ScopeAll},
		ActionRead:   {RoleAdmin: ScopeAll, RolePayrollOfficer: ScopeAll, RoleEmployee: ScopeOwn},
		ActionUpdate: {RoleAdmin: ScopeAll, RolePayrollOfficer: ScopeAll},
		ActionDelete: {RoleAdmin: ScopeAll},
	},
	ResourceUserAccount: {
		ActionCreate: {RoleAdmin: ScopeAll},
		ActionRead:   {RoleAdmin: ScopeAll},
		ActionUpdate: {RoleAdmin: ScopeAll},
		ActionDelete: {RoleAdmin: ScopeAll},
	},
	ResourceAuditLog: {
		ActionRead: {RoleAdmin: ScopeAll},
	},
}

// ScopeFor looks up the grant for role on (action, resource).
func ScopeFor(role Role, action Action, resource Resource) Scope {
	byAction, ok := permissionTable[resource]
	if !ok {
		return ScopeNone
	}
	byRole, ok := byAction[action]
	if !ok {
		return ScopeNone
	}
	return byRole[role]
}

// Authorize reports whether role may perform action on resource for at least
// its own records.
func Authorize(role Role, action Action, resource Resource) bool {
	return ScopeFor(role, action, resource) != ScopeNone
}

// Require checks p against the table for a specific subject employee. An
// own-scoped grant only passes when subjectEmployeeID is p's employee profile.
func Require(p Principal, action Action, resource Resource, subjectEmployeeID string) error {
	switch ScopeFor(p.Role, action, resource) {
	case ScopeAll:
		return nil
	case ScopeOwn:
		if p.EmployeeID != "" && subjectEmployeeID == p.EmployeeID {
			return nil
		}
	}
	return &ForbiddenError{Role: p.Role, Action: action, Resource: resource, Subject: subjectEmployeeID}
}

// RequireScope is used by list operations: it fails when the role has no
// grant and otherwise returns the scope the caller must filter by.
func RequireScope(p Principal, action Action, resource Resource) (Scope, error) {
	scope := ScopeFor(p.Role, action, resource)
	if scope == ScopeNone || (scope == ScopeOwn && p.EmployeeID == "") {
		return ScopeNone, &ForbiddenError{Role: p.Role, Action: action, Resource: resource}
	}
	return scope, nil
}

// Grant is one row of the permission table as exposed to clients.
type Grant struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
	Scope    string   `json:"scope"`
}

// GrantsFor lists every grant role holds, ordered by resource then action.
func GrantsFor(role Role) []Grant {
	out := make([]Grant, 0, len(Resources)*len(Actions))
	for _, resource := range Resources {
		for _, action := range Actions {
			if scope := ScopeFor(role, action, resource); scope != ScopeNone {
				out = append(out, Grant{Resource: resource, Action: action, Scope: scope.String()})
			}
		}
	}
	return out
}
