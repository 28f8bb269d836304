package model

import "time"

// Role names carried in the access token's "role" claim.
const (
	RoleCustomer = "CUSTOMER"
	RoleManager  = "MANAGER"
)

// User represents an application user record as stored in the `users`
// table. The ticketing services only read users: registration and role
// management live elsewhere.
//
// Fields:
//  ID        – UUID primary key.
//  Username  – display name.
//  Email     – unique address confirmations are sent to.
//  Age       – age in years, compared against a movie's restriction.
//  Role      – CUSTOMER or MANAGER.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Age       int       `json:"age"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
