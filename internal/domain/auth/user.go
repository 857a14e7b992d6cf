package auth

import "time"

type UserRole string

const (
	RoleStudent     UserRole = "student"
	RoleCampusAdmin UserRole = "campus_admin"
	RoleClubAdmin   UserRole = "club_admin"
	RoleSuperAdmin  UserRole = "super_admin"
)

// IsReviewer reports whether the role may review admin requests.
func (r UserRole) IsReviewer() bool {
	return r == RoleSuperAdmin
}

type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         UserRole  `json:"role" gorm:"type:varchar(20);not null;default:'student'"`
	Name         string    `json:"name"`
	CollegeName  string    `json:"college_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
