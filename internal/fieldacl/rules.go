// Package fieldacl enforces per-field visibility and writability rules.
// Rules form a single declarative table (entity x field) loaded at process
// start; adding a protected field is a data change, not a code change.
package fieldacl

import "github.com/districthq/districthq/internal/rbac"

// Visibility controls who may read a field.
type Visibility string

const (
	// VisibilityPublic fields are readable by any resolved actor.
	VisibilityPublic Visibility = "public"
	// VisibilitySelf fields are readable only by the record owner.
	VisibilitySelf Visibility = "self"
	// VisibilityPrivileged fields require the entity's privileged capability.
	VisibilityPrivileged Visibility = "privileged"
	// VisibilityHidden fields are readable by no one, including the owner.
	// Secrets such as password hashes live here.
	VisibilityHidden Visibility = "hidden"
)

// Writability controls who may write a field.
type Writability string

const (
	// WriteLocked fields are writable by no one through this path.
	WriteLocked Writability = "locked"
	// WriteSelf fields are writable only by the record owner.
	WriteSelf Writability = "self"
	// WritePrivileged fields require the entity's privileged capability.
	WritePrivileged Writability = "privileged"
)

// Rule is the policy for a single (entity, field) pair.
type Rule struct {
	Visibility  Visibility
	Writability Writability
}

// EntityRules couples a field table with the capability that marks an
// actor as privileged for the entity.
type EntityRules struct {
	PrivilegedCap rbac.Capability
	Fields        map[string]Rule
}

// Ruleset is the full declarative table, immutable after construction.
type Ruleset struct {
	entities map[string]EntityRules
}

// NewRuleset builds a ruleset from entity tables.
func NewRuleset(entities map[string]EntityRules) *Ruleset {
	copied := make(map[string]EntityRules, len(entities))
	for name, er := range entities {
		fields := make(map[string]Rule, len(er.Fields))
		for f, r := range er.Fields {
			fields[f] = r
		}
		copied[name] = EntityRules{PrivilegedCap: er.PrivilegedCap, Fields: fields}
	}
	return &Ruleset{entities: copied}
}

// Lookup returns the rule for a field. Missing entities and missing
// fields both report no rule, which callers treat as deny.
func (rs *Ruleset) Lookup(entity, field string) (Rule, rbac.Capability, bool) {
	er, ok := rs.entities[entity]
	if !ok {
		return Rule{}, "", false
	}
	rule, ok := er.Fields[field]
	if !ok {
		return Rule{}, "", false
	}
	return rule, er.PrivilegedCap, true
}

// Entity names used by the default ruleset.
const (
	EntityUser    = "user"
	EntityStaff   = "staff"
	EntityMeeting = "meeting"
	EntitySchool  = "school"
)

// DefaultRuleset carries the platform's protected fields.
func DefaultRuleset() *Ruleset {
	return NewRuleset(map[string]EntityRules{
		EntityUser: {
			PrivilegedCap: rbac.CapUserManage,
			Fields: map[string]Rule{
				"id":                {VisibilityPublic, WriteLocked},
				"name":              {VisibilityPublic, WriteSelf},
				"email":             {VisibilitySelf, WriteSelf},
				"is_active":         {VisibilityPrivileged, WritePrivileged},
				"is_system_admin":   {VisibilityPrivileged, WritePrivileged},
				"role_key":          {VisibilityPublic, WritePrivileged},
				"hashed_password":   {VisibilityHidden, WriteSelf},
				"two_factor_secret": {VisibilityHidden, WriteSelf},
				"backup_codes":      {VisibilitySelf, WriteSelf},
			},
		},
		EntityStaff: {
			PrivilegedCap: rbac.CapStaffManage,
			Fields: map[string]Rule{
				"id":                 {VisibilityPublic, WriteLocked},
				"department":         {VisibilityPublic, WritePrivileged},
				"school":             {VisibilityPublic, WritePrivileged},
				"salary":             {VisibilitySelf, WritePrivileged},
				"performance_rating": {VisibilitySelf, WritePrivileged},
				"flags":              {VisibilityPrivileged, WritePrivileged},
			},
		},
		EntityMeeting: {
			PrivilegedCap: rbac.CapMeetingEdit,
			Fields: map[string]Rule{
				"id":            {VisibilityPublic, WriteLocked},
				"title":         {VisibilityPublic, WriteSelf},
				"agenda":        {VisibilityPublic, WriteSelf},
				"private_notes": {VisibilitySelf, WriteSelf},
				"confidential":  {VisibilityPrivileged, WritePrivileged},
			},
		},
		EntitySchool: {
			PrivilegedCap: rbac.CapSchoolManage,
			Fields: map[string]Rule{
				"id":                  {VisibilityPublic, WriteLocked},
				"name":                {VisibilityPublic, WritePrivileged},
				"budget":              {VisibilityPrivileged, WritePrivileged},
				"enrollment_capacity": {VisibilityPrivileged, WritePrivileged},
			},
		},
	})
}
