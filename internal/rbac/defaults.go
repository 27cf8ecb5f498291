package rbac

// DefaultRoles returns the district role hierarchy. Rank 1 is the most
// privileged; ranks are unique.
func DefaultRoles() []Role {
	return []Role{
		{Key: RoleDevAdmin, Title: "Developer Admin", Rank: 1, IsLeadership: true, Category: CategoryAdministration},
		{Key: RoleOpsAdmin, Title: "Operations Admin", Rank: 2, IsLeadership: true, Category: CategoryAdministration},
		{Key: RoleChiefEduOfficer, Title: "Chief Education Officer", Rank: 3, IsLeadership: true, Category: CategoryLeadership},
		{Key: RoleDirOperations, Title: "Director of Operations", Rank: 4, IsLeadership: true, Category: CategoryLeadership},
		{Key: RoleBusAdmin, Title: "Business Administrator", Rank: 5, IsLeadership: true, Category: CategoryLeadership},
		{Key: RoleAsstBusAdmin, Title: "Assistant Business Administrator", Rank: 6, IsLeadership: false, Category: CategoryLeadership},
		{Key: RolePrincipal, Title: "Principal", Rank: 7, IsLeadership: true, Category: CategoryLeadership},
		{Key: RoleAsstPrincipal, Title: "Assistant Principal", Rank: 8, IsLeadership: true, Category: CategoryLeadership},
		{Key: RoleLeadTeacher, Title: "Lead Teacher", Rank: 9, IsLeadership: false, Category: CategoryInstruction},
		{Key: RoleTeacher, Title: "Teacher", Rank: 10, IsLeadership: false, Category: CategoryInstruction},
		{Key: RoleSupportStaff, Title: "Support Staff", Rank: 11, IsLeadership: false, Category: CategorySupport},
	}
}

// DefaultGrants returns the capability mapping shipped with a fresh
// install. The mapping is data: administrators edit it through the roles
// API, not by changing code.
func DefaultGrants() map[RoleKey][]Capability {
	devCaps := []Capability{CapDevDebug, CapDevUpdate, CapDevSeed, CapDevLint, CapDevFix}
	opsCaps := []Capability{CapOpsMonitoring, CapOpsAlerts, CapOpsBackup, CapOpsLogs, CapOpsHealth, CapOpsDBRead, CapOpsDBWrite}
	manageCaps := []Capability{
		CapUserManage, CapUserView, CapRoleManage, CapRoleView, CapPermManage,
		CapSchoolManage, CapSchoolView, CapStaffImport, CapStaffManage, CapStaffView,
	}
	meetingCaps := []Capability{CapMeetingCreate, CapMeetingView, CapMeetingEdit, CapMeetingEditOwn, CapMeetingDelete}

	all := make([]Capability, 0, len(devCaps)+len(opsCaps)+len(manageCaps)+len(meetingCaps))
	all = append(all, devCaps...)
	all = append(all, opsCaps...)
	all = append(all, manageCaps...)
	all = append(all, meetingCaps...)

	opsAdmin := make([]Capability, 0, len(opsCaps)+len(manageCaps)+len(meetingCaps))
	opsAdmin = append(opsAdmin, opsCaps...)
	opsAdmin = append(opsAdmin, manageCaps...)
	opsAdmin = append(opsAdmin, meetingCaps...)

	return map[RoleKey][]Capability{
		RoleDevAdmin: all,
		RoleOpsAdmin: opsAdmin,
		RoleChiefEduOfficer: {
			CapUserView, CapRoleView, CapSchoolManage, CapSchoolView, CapStaffView,
			CapMeetingCreate, CapMeetingView, CapMeetingEdit, CapMeetingDelete, CapOpsLogs,
		},
		RoleDirOperations: {
			CapOpsMonitoring, CapOpsHealth, CapOpsLogs, CapSchoolView, CapStaffView,
			CapMeetingCreate, CapMeetingView, CapMeetingEdit,
		},
		RoleBusAdmin: {
			CapUserView, CapStaffManage, CapStaffView, CapStaffImport, CapSchoolView,
			CapMeetingCreate, CapMeetingView, CapMeetingEditOwn,
		},
		RoleAsstBusAdmin: {
			CapUserView, CapStaffView, CapSchoolView, CapMeetingView, CapMeetingEditOwn,
		},
		RolePrincipal: {
			CapUserView, CapStaffManage, CapStaffView, CapSchoolView,
			CapMeetingCreate, CapMeetingView, CapMeetingEdit, CapMeetingDelete,
		},
		RoleAsstPrincipal: {
			CapUserView, CapStaffView, CapSchoolView,
			CapMeetingCreate, CapMeetingView, CapMeetingEdit,
		},
		RoleLeadTeacher: {
			CapStaffView, CapMeetingCreate, CapMeetingView, CapMeetingEditOwn,
		},
		RoleTeacher: {
			CapMeetingCreate, CapMeetingView, CapMeetingEditOwn,
		},
		RoleSupportStaff: {
			CapMeetingView,
		},
	}
}

// AllCapabilities lists every defined capability token.
func AllCapabilities() []Capability {
	return []Capability{
		CapDevDebug, CapDevUpdate, CapDevSeed, CapDevLint, CapDevFix,
		CapOpsMonitoring, CapOpsAlerts, CapOpsBackup, CapOpsLogs, CapOpsHealth, CapOpsDBRead, CapOpsDBWrite,
		CapUserManage, CapUserView, CapRoleManage, CapRoleView, CapPermManage,
		CapSchoolManage, CapSchoolView, CapStaffImport, CapStaffManage, CapStaffView,
		CapMeetingCreate, CapMeetingView, CapMeetingEdit, CapMeetingEditOwn, CapMeetingDelete,
	}
}
