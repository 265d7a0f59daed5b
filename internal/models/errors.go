package models

import "errors"

// Sentinel errors shared by repositories and handlers.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")
	ErrStatusRegress = errors.New("invite status cannot move backwards")
)
