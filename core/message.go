package core

// Role labels a message from the point of view of the identity that stores
// it. Values use the wire names memory services expect.
type Role string

const (
	// RoleSelf marks turns authored by the identity owner.
	RoleSelf Role = "user"
	// RoleOther marks turns authored by the conversation partner.
	RoleOther Role = "assistant"
)

// Message is a role-labeled chat message submitted to a memory backend.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
