package employee

import "errors"

var (
	ErrAlreadyExists      = errors.New("employee id already exists")
	ErrNotFound           = errors.New("employee not found")
	ErrStorageUnavailable = errors.New("employee storage unavailable")
)
