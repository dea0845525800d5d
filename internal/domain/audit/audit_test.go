package audit

import (
	"strings"
	"testing"
)

func TestBuildBaseQueryNoFilter(t *testing.T) {
	query, args := buildBaseQuery("SELECT COUNT(1)", Filter{})
	if query != "SELECT COUNT(1) FROM audit_events WHERE 1=1" {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestBuildBaseQueryNumbersPlaceholders(t *testing.T) {
	query, args := buildBaseQuery("SELECT id", Filter{Action: "payroll.regenerate", EntityID: "rec-1", ActorUser: "u-1"})
	if !strings.Contains(query, "action = $1") || !strings.Contains(query, "entity_id = $2") || !strings.Contains(query, "actor_user_id::text = $3") {
		t.Fatalf("unexpected placeholders: %s", query)
	}
	if strings.Contains(query, "entity_type") {
		t.Fatalf("did not expect entity_type clause: %s", query)
	}
	if len(args) != 3 || args[0] != "payroll.regenerate" || args[2] != "u-1" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestMarshalOptional(t *testing.T) {
	out, err := marshalOptional(nil)
	if err != nil || out != nil {
		t.Fatalf("expected nil payload, got %s (%v)", out, err)
	}
	out, err = marshalOptional(map[string]string{"status": "Approved"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"status":"Approved"}` {
		t.Fatalf("unexpected payload: %s", out)
	}
}
