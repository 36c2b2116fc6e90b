package entity

import (
	"database/sql"
	"time"
)

// User has at least one authentication method: a bcrypt password hash,
// a linked Google subject, or both.
type User struct {
	ID             uint64
	Username       string
	Email          sql.NullString
	HashedPassword sql.NullString
	GoogleSub      sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
