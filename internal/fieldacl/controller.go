package fieldacl

import (
	"fmt"

	"github.com/districthq/districthq/internal/rbac"
)

// PolicyChecker is the slice of the rbac evaluator the controller needs.
type PolicyChecker interface {
	Can(actor *rbac.Actor, caps ...rbac.Capability) bool
}

// FieldError names a field the actor may not write and why.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// WriteDecision is the outcome of ValidateWrite.
type WriteDecision struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Controller applies a ruleset to records. All methods are pure: they
// never mutate their inputs and are safe for unbounded concurrent use.
type Controller struct {
	rules  *Ruleset
	policy PolicyChecker
}

// NewController binds a ruleset to a policy checker.
func NewController(rules *Ruleset, policy PolicyChecker) *Controller {
	return &Controller{rules: rules, policy: policy}
}

// FilterFields returns the subset of record fields the actor may read.
// Ownership is decided by stable user ID, never by mutable attributes.
// Fields without a rule are excluded.
func (c *Controller) FilterFields(actor *rbac.Actor, entity string, record map[string]any, ownerID int64) map[string]any {
	filtered := make(map[string]any, len(record))
	for field, value := range record {
		rule, cap, ok := c.rules.Lookup(entity, field)
		if !ok {
			continue
		}
		if c.canRead(actor, rule.Visibility, cap, ownerID) {
			filtered[field] = value
		}
	}
	return filtered
}

// ValidateWrite checks every proposed field against its writability rule.
// It decides only; the caller performs the write when Valid is true.
func (c *Controller) ValidateWrite(actor *rbac.Actor, entity string, changes map[string]any, ownerID int64) WriteDecision {
	var errs []FieldError
	for field := range changes {
		rule, cap, ok := c.rules.Lookup(entity, field)
		if !ok {
			errs = append(errs, FieldError{Field: field, Reason: "no write rule defined"})
			continue
		}
		if !c.canWrite(actor, rule.Writability, cap, ownerID) {
			errs = append(errs, FieldError{Field: field, Reason: writeDenialReason(rule.Writability)})
		}
	}
	return WriteDecision{Valid: len(errs) == 0, Errors: errs}
}

func (c *Controller) canRead(actor *rbac.Actor, vis Visibility, cap rbac.Capability, ownerID int64) bool {
	switch vis {
	case VisibilityPublic:
		return actor != nil
	case VisibilitySelf:
		return isOwner(actor, ownerID)
	case VisibilityPrivileged:
		return c.policy.Can(actor, cap)
	default:
		return false
	}
}

func (c *Controller) canWrite(actor *rbac.Actor, w Writability, cap rbac.Capability, ownerID int64) bool {
	switch w {
	case WriteSelf:
		return isOwner(actor, ownerID)
	case WritePrivileged:
		return c.policy.Can(actor, cap)
	default:
		return false
	}
}

func isOwner(actor *rbac.Actor, ownerID int64) bool {
	return actor != nil && ownerID != 0 && actor.UserID == ownerID
}

func writeDenialReason(w Writability) string {
	switch w {
	case WriteLocked:
		return "field is locked"
	case WriteSelf:
		return "only the record owner may change this field"
	case WritePrivileged:
		return "requires a privileged capability"
	default:
		return fmt.Sprintf("writability %q not writable", string(w))
	}
}
