package models

import (
	"time"
)

const (
	RoleUser      = "user"
	RoleArtist    = "artist"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// AccountKindJWT marks accounts created with native credentials,
// AccountKindGoogle marks accounts synthesized from a Google profile.
const (
	AccountKindJWT    = "jwt"
	AccountKindGoogle = "google"
)

type User struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement"       json:"id"`
	Username           string    `gorm:"size:150"                      json:"username"`
	Email              string    `gorm:"size:250;uniqueIndex;not null" json:"email"`
	PasswordHash       string    `gorm:"not null"                      json:"-"`
	UserType           string    `gorm:"not null;default:user"         json:"userType"`
	IsAccountVerified  bool      `gorm:"not null;default:false"        json:"isAccountVerified"`
	VerificationToken  *string   `json:"-"`
	ResetPasswordToken *string   `json:"-"`
	ProfileImage       *string   `json:"profileImage"`
	Kind               string    `gorm:"default:jwt"                   json:"kind"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
	Songs              []Song    `json:"songs,omitempty"`
}

type Song struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"not null;index"           json:"name"`
	Artist       string    `gorm:"not null"                 json:"artist"`
	ReleasedDate time.Time `gorm:"type:date"                json:"releasedDate"`
	// Duration is stored in minutes, converted from the media host's seconds.
	Duration  float64   `gorm:"not null"                    json:"duration"`
	Lyrics    string    `gorm:"type:text"                   json:"lyrics"`
	AudioURL  string    `gorm:"not null"                    json:"audioUrl"`
	ImageURL  string    `gorm:"not null"                    json:"imageUrl"`
	UserID    uint      `gorm:"index;not null"              json:"userId"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
