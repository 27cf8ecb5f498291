package rbac

// RoleKey identifies a role. Keys are a closed set compared by identity;
// display titles are presentation data and never gate authorization.
type RoleKey string

const (
	RoleDevAdmin        RoleKey = "dev_admin"
	RoleOpsAdmin        RoleKey = "ops_admin"
	RoleChiefEduOfficer RoleKey = "chief_edu_officer"
	RoleDirOperations   RoleKey = "dir_operations"
	RoleBusAdmin        RoleKey = "bus_admin"
	RoleAsstBusAdmin    RoleKey = "asst_bus_admin"
	RolePrincipal       RoleKey = "principal"
	RoleAsstPrincipal   RoleKey = "asst_principal"
	RoleLeadTeacher     RoleKey = "lead_teacher"
	RoleTeacher         RoleKey = "teacher"
	RoleSupportStaff    RoleKey = "support_staff"
)

// Capability is an atomic permission token in area:verb form.
type Capability string

const (
	CapDevDebug  Capability = "dev:debug"
	CapDevUpdate Capability = "dev:update"
	CapDevSeed   Capability = "dev:seed"
	CapDevLint   Capability = "dev:lint"
	CapDevFix    Capability = "dev:fix"

	CapOpsMonitoring Capability = "ops:monitoring"
	CapOpsAlerts     Capability = "ops:alerts"
	CapOpsBackup     Capability = "ops:backup"
	CapOpsLogs       Capability = "ops:logs"
	CapOpsHealth     Capability = "ops:health"
	CapOpsDBRead     Capability = "ops:db:read"
	CapOpsDBWrite    Capability = "ops:db:write"

	CapUserManage Capability = "user:manage"
	CapUserView   Capability = "user:view"
	CapRoleManage Capability = "role:manage"
	CapRoleView   Capability = "role:view"
	CapPermManage Capability = "perm:manage"

	CapSchoolManage Capability = "school:manage"
	CapSchoolView   Capability = "school:view"
	CapStaffImport  Capability = "staff:import"
	CapStaffManage  Capability = "staff:manage"
	CapStaffView    Capability = "staff:view"

	CapMeetingCreate  Capability = "meeting:create"
	CapMeetingView    Capability = "meeting:view"
	CapMeetingEdit    Capability = "meeting:edit"
	CapMeetingEditOwn Capability = "meeting:edit:own"
	CapMeetingDelete  Capability = "meeting:delete"
)

// Role categories group roles for reporting; they grant nothing.
const (
	CategoryAdministration = "administration"
	CategoryLeadership     = "leadership"
	CategoryInstruction    = "instruction"
	CategorySupport        = "support"
)

// Role is a named, ranked bundle of capabilities. Lower rank means more
// privileged; rank is unique across roles.
type Role struct {
	Key          RoleKey
	Title        string
	Rank         int
	IsLeadership bool
	Category     string
}

// Actor is the runtime representation of the party making a request. An
// actor without a staff role carries the empty capability set unless the
// SystemAdmin override is set.
type Actor struct {
	UserID      int64
	Email       string
	StaffID     int64
	RoleKey     RoleKey
	SystemAdmin bool
}

// HasStaffRole reports whether the actor carries an operational role.
func (a *Actor) HasStaffRole() bool {
	return a != nil && a.RoleKey != ""
}

// adminTiers enumerates the administrative role tiers. There are exactly
// two: the development/system tier and the operations tier.
var adminTiers = map[RoleKey]struct{}{
	RoleDevAdmin: {},
	RoleOpsAdmin: {},
}

// IsAdminTier reports whether the key names an administrative tier role.
func IsAdminTier(key RoleKey) bool {
	_, ok := adminTiers[key]
	return ok
}
