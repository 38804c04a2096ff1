package domain

import (
	"time"

	"github.com/google/uuid"
)

const RoleAdmin = "admin"

type AdminUser struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email    string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Password string    `gorm:"column:password;not null" json:"-"`
	Role     string    `gorm:"column:role;not null;default:'admin'" json:"role"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (AdminUser) TableName() string { return "admin_users" }
