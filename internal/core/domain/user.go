package domain

import "time"

// Role is one of the three fixed workflow roles.
type Role string

const (
	RoleConsultant        Role = "Consultant"
	RoleKnowledgeChampion Role = "KnowledgeChampion"
	RoleAdmin             Role = "Admin"
)

// Valid reports whether r is one of the known role literals.
func (r Role) Valid() bool {
	switch r {
	case RoleConsultant, RoleKnowledgeChampion, RoleAdmin:
		return true
	}
	return false
}

// UserStatus governs login eligibility.
type UserStatus string

const (
	UserPending  UserStatus = "Pending"
	UserApproved UserStatus = "Approved"
)

// User is an account record as owned by the persistence layer.
// PasswordHash never leaves the engine; use Sanitized for output.
type User struct {
	Username      string
	PasswordHash  string
	Role          Role
	RequestedRole Role
	Region        string
	Status        UserStatus
	CreatedAt     time.Time
}

// SanitizedUser is the outward projection of a User.
type SanitizedUser struct {
	Username      string     `json:"username"`
	Role          Role       `json:"role"`
	RequestedRole Role       `json:"requestedRole,omitempty"`
	Region        string     `json:"region"`
	Status        UserStatus `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Sanitized strips the credential.
func (u User) Sanitized() SanitizedUser {
	return SanitizedUser{
		Username:      u.Username,
		Role:          u.Role,
		RequestedRole: u.RequestedRole,
		Region:        u.Region,
		Status:        u.Status,
		CreatedAt:     u.CreatedAt,
	}
}

// UserPatch lists the mutable account fields; nil means unchanged.
type UserPatch struct {
	Role   *Role
	Status *UserStatus
}

// Apply writes every set field of p onto u.
func (p UserPatch) Apply(u *User) {
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
}

// UserFilter narrows a user listing. Zero value matches everything.
type UserFilter struct {
	Status UserStatus
}

// Match reports whether u satisfies the filter.
func (f UserFilter) Match(u User) bool {
	return f.Status == "" || u.Status == f.Status
}

// Identity is the answer to a successful login.
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
