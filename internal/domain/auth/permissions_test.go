package auth

import (
	"errors"
	"testing"
)

// expectedGrants mirrors the published permission matrix; anything absent
// must be denied.
var expectedGrants = map[Resource]map[Action]map[Role]Scope{
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

func TestAuthorizeMatchesMatrixExhaustively(t *testing.T) {
	for _, resource := range Resources {
		for _, action := range Actions {
			for _, role := range Roles {
				want := expectedGrants[resource][action][role]
				if got := ScopeFor(role, action, resource); got != want {
					t.Fatalf("ScopeFor(%s, %s, %s) = %s, want %s", role, action, resource, got, want)
				}
				if got := Authorize(role, action, resource); got != (want != ScopeNone) {
					t.Fatalf("Authorize(%s, %s, %s) = %v", role, action, resource, got)
				}
			}
		}
	}
}

func TestAuthorizeUnknownInputsDenied(t *testing.T) {
	if Authorize(Role("Manager"), ActionRead, ResourceEmployee) {
		t.Fatal("unknown role must be denied")
	}
	if Authorize(RoleAdmin, Action("approve"), ResourceLeave) {
		t.Fatal("unknown action must be denied")
	}
	if Authorize(RoleAdmin, ActionRead, Resource("salary")) {
		t.Fatal("unknown resource must be denied")
	}
}

func TestRequireOwnScope(t *testing.T) {
	emp := Principal{UserID: "u1", EmployeeID: "e1", Role: RoleEmployee}

	if err := Require(emp, ActionCreate, ResourceLeave, "e1"); err != nil {
		t.Fatalf("expected own leave create allowed, got %v", err)
	}
	err := Require(emp, ActionCreate, ResourceLeave, "e2")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for other employee, got %v", err)
	}
	var forbidden *ForbiddenError
	if !errors.As(err, &forbidden) || forbidden.Subject != "e2" || forbidden.Action != ActionCreate {
		t.Fatalf("expected forbidden details, got %+v", err)
	}

	noProfile := Principal{UserID: "u2", Role: RoleEmployee}
	if err := Require(noProfile, ActionCreate, ResourceAttendance, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden without employee profile, got %v", err)
	}
}

func TestRequireScopeForLists(t *testing.T) {
	cases := []struct {
		name    string
		p       Principal
		want    Scope
		wantErr bool
	}{
		{name: "admin", p: Principal{Role: RoleAdmin}, want: ScopeAll},
		{name: "payroll officer", p: Principal{Role: RolePayrollOfficer}, want: ScopeAll},
		{name: "employee", p: Principal{Role: RoleEmployee, EmployeeID: "e1"}, want: ScopeOwn},
		{name: "employee without profile", p: Principal{Role: RoleEmployee}, wantErr: true},
		{name: "hr officer payroll", p: Principal{Role: RoleHROfficer}, wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			scope, err := RequireScope(tc.p, ActionRead, ResourcePayroll)
			if tc.wantErr {
				if !errors.Is(err, ErrForbidden) {
					t.Fatalf("expected forbidden, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if scope != tc.want {
				t.Fatalf("expected scope %s, got %s", tc.want, scope)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" payroll officer ")
	if err != nil || role != RolePayrollOfficer {
		t.Fatalf("expected Payroll Officer, got %q (%v)", role, err)
	}
	if _, err := ParseRole("Manager"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if Role("admin").Valid() {
		t.Fatal("Valid must require the canonical spelling")
	}
}

func TestGrantsForFollowsTable(t *testing.T) {
	grants := GrantsFor(RoleEmployee)
	if len(grants) != 6 {
		t.Fatalf("expected 6 employee grants, got %+v", grants)
	}
	for _, g := range grants {
		if g.Resource == ResourcePayroll && g.Action == ActionRead && g.Scope != "own" {
			t.Fatalf("expected own payroll read, got %+v", g)
		}
	}
	if len(GrantsFor(Role("Manager"))) != 0 {
		t.Fatal("unknown role must hold no grants")
	}
}
