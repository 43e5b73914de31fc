package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name         string `gorm:"size:100;not null" json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Avatar       string `json:"avatar"`
	Role         string `gorm:"not null;default:user" json:"role"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	Messages []Message `gorm:"foreignKey:SenderID" json:"-"`
}

// UserResponse is the identity shape handed to clients: id, display
// name, avatar URL and the active flag. Email and role stay internal.
type UserResponse struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	IsActive    bool   `json:"isActive"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:          u.ID,
		DisplayName: u.Name,
		AvatarURL:   u.Avatar,
		IsActive:    u.IsActive,
	}
}

// SenderInfo is the sender block embedded in every message payload.
type SenderInfo struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

func (u *User) ToSenderInfo() SenderInfo {
	return SenderInfo{
		ID:          u.ID,
		DisplayName: u.Name,
		AvatarURL:   u.Avatar,
	}
}
