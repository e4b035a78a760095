package models

import (
	"time"

	"github.com/uptrace/bun"
)

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleAttendee UserRole = "attendee"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Email     string    `bun:"email,unique,notnull" json:"email"`
	Role      UserRole  `bun:"role,notnull" json:"role"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}
