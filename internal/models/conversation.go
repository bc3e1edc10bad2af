package models

// Turn captures a single role-tagged message of an assistant exchange.
// Turns live only for the duration of one query; nothing here is persisted.

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
