package models

import "time"

type User struct {
	ID           string     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Username     string     `gorm:"column:username;type:text;uniqueIndex" json:"username"`
	Email        string     `gorm:"column:email;type:text" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;type:text" json:"-"`
	CreatedAt    time.Time  `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at;type:timestamptz" json:"last_login_at,omitempty"`
}

func (User) TableName() string { return "users" }
