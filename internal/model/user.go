// Package model defines the data structures used throughout the application.
package model

// User represents a registered account.
//
// WHY int64 IDs (not xid strings)?
// Databases written by earlier versions of this app use an INTEGER PRIMARY KEY
// on the "user" table. Keeping the same key type means an old file can be
// opened, and its rows copied, without rewriting any identity column.
//
// The gorm tags are only read by the Postgres repository; the SQLite
// repository writes its own SQL and uses the db tags as documentation.
type User struct {
	ID       int64  `json:"id"       db:"id"       gorm:"primaryKey"`
	Username string `json:"username" db:"username" gorm:"size:80;not null;uniqueIndex"`
	Email    string `json:"email"    db:"email"    gorm:"size:120;not null;uniqueIndex"`
}

// TableName pins the table name to "user" (gorm would pluralise it).
func (User) TableName() string { return UserTable }

// UserPatch describes a partial update to a User. Nil fields are left unchanged.
type UserPatch struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// Apply copies every set field of the patch onto u.
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
}
