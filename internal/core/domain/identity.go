package domain

// Role is supplied by the auth collaborator; the engine only consumes it.
type Role string

const (
	RolePayer Role = "client"
	RolePayee Role = "provider"
)

// Identity is the resolved caller of an engine operation.
type Identity struct {
	AccountID string
	Role      Role
}
