package models

// CurrentUser is the identity and role set supplied by the auth collaborator.
// Read-only input to step execution: bricks use it for permission checks and
// for recording who advanced a manual step.
type CurrentUser struct {
	ID    string   `json:"id"    validate:"required"`
	Name  string   `json:"name"`
	Email string   `json:"email" validate:"omitempty,email"`
	Roles []string `json:"roles"`
}

// HasRole reports whether the user carries the given role.
func (u *CurrentUser) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}

	return false
}
