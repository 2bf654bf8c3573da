package models

// Role names recognised by the engine. Anything else is an ordinary doctor.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
	RoleModerator  = "moderator"
)

// Actor is the caller identity handed over by the identity provider.
type Actor struct {
	ID    uint     `json:"id"`
	Roles []string `json:"roles"`
}

// IsElevated reports whether the actor may edit or delete content it does not own.
func (a Actor) IsElevated() bool {
	for _, r := range a.Roles {
		switch r {
		case RoleAdmin, RoleSuperAdmin, RoleModerator:
			return true
		}
	}
	return false
}

// CanModify reports whether the actor owns the resource or holds an elevated role.
func (a Actor) CanModify(ownerID uint) bool {
	return a.ID == ownerID || a.IsElevated()
}
