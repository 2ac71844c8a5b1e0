package services

import "errors"

var (
	ErrUsernameTaken      = errors.New("Username already exists")
	ErrInvalidCredentials = errors.New("Invalid username or password")
	ErrTaskNotFound       = errors.New("Task not found")
	ErrForbidden          = errors.New("permission denied")
)
