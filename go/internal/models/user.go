package models

// User is the identity decoded from the session token
type User struct {
	ID    ID     `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
