package handler

import "github.com/Bhumit267/CodeXi/internal/core/domain"

type updateProfileRequest struct {
	Username string `json:"username" validate:"omitempty,username"`
	Email    string `json:"email"    validate:"omitempty,email"`
	FullName string `json:"fullname" validate:"omitempty,min=3,max=30"`
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,password"`
}

type solveProblemRequest struct {
	Slug string `json:"slug" validate:"required"`
}

type userResponse struct {
	User    *domain.User `json:"user"`
	Message string       `json:"message,omitempty"`
}

type solvedResponse struct {
	SolvedProblems []string `json:"solvedProblems"`
	Message        string   `json:"message"`
}
