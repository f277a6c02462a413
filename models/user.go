package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email" binding:"required,email"`
	Name      string             `bson:"name" json:"name" binding:"required,min=1,max=100"`
	Role      string             `bson:"role" json:"role"`
	Active    bool               `bson:"active" json:"active"`
	Subjects  []string           `bson:"subjects" json:"subjects"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

type UserCreateRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required,min=1,max=100"`
	Role  string `json:"role"`
}

type UserCreateResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message"`
}

type UserLoginRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type UserLoginResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty"`
	Message string `json:"message"`
}

type UserProfileResponse struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Role      string   `json:"role"`
	Active    bool     `json:"active"`
	CreatedAt string   `json:"created_at"`
	Subjects  []string `json:"subjects"`
}

type UserProfileUpdateRequest struct {
	Name string `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	Role string `json:"role,omitempty"`
}

type AddSubjectRequest struct {
	SubjectID string `json:"subject_id" binding:"required,min=1"`
	Email     string `json:"email" binding:"required"`
}

type UserSubjectsResponse struct {
	Success  bool     `json:"success"`
	Subjects []string `json:"subjects"`
	Message  string   `json:"message,omitempty"`
}
