package core

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrDuplicateEmail   = errors.New("employee email already exists")
	ErrInvalidEmployee  = errors.New("invalid employee")
	ErrInvalidManager   = errors.New("manager must be another existing employee")
)
