package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin       UserRole = "SUPERADMIN"
	RoleAdmin            UserRole = "ADMIN"
	RoleDirector         UserRole = "DIRECTOR"
	RoleTimetableOfficer UserRole = "TIMETABLE_OFFICER"
	RoleTeacher          UserRole = "TEACHER"
)

// Valid reports whether the role is one the API knows about.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleDirector, RoleTimetableOfficer, RoleTeacher:
		return true
	}
	return false
}
