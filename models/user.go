package models

import "time"

type User struct {
	UserID        string    `json:"userid" bson:"userid"`
	Username      string    `json:"username" bson:"username"`
	Email         string    `json:"email" bson:"email"`
	Password      string    `json:"-" bson:"password"`
	Role          []string  `json:"role" bson:"role"`
	Name          string    `json:"name,omitempty" bson:"name,omitempty"`
	University    string    `json:"university,omitempty" bson:"university,omitempty"`
	EmailVerified bool      `json:"email_verified" bson:"email_verified"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
	LastLogin     time.Time `json:"last_login,omitempty" bson:"last_login,omitempty"`
}

// PublicUser is what auth endpoints hand back to clients.
type PublicUser struct {
	UserID     string `json:"userid"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	University string `json:"university,omitempty"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		UserID:     u.UserID,
		Username:   u.Username,
		Email:      u.Email,
		Name:       u.Name,
		University: u.University,
	}
}
