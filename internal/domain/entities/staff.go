package entities

// StaffRole is a member's role at a provider
type StaffRole string

const (
	StaffRoleOwner       StaffRole = "owner"
	StaffRoleDoctor      StaffRole = "doctor"
	StaffRoleCoordinator StaffRole = "coordinator"
	StaffRoleNurse       StaffRole = "nurse"
)

// ClinicalRoles are the roles counted when judging a provider's specialists
var ClinicalRoles = []StaffRole{StaffRoleOwner, StaffRoleDoctor}

// StaffMember is a provider staff membership joined with the member's specialty profile
type StaffMember struct {
	ID          string    `json:"id" db:"id"`
	ProviderID  string    `json:"provider_id" db:"provider_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Role        StaffRole `json:"role" db:"role"`
	Specialties []string  `json:"specialties" db:"specialties"`
}
