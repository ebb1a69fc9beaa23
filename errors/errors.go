package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
	ErrOnlyCensoredFiles  = fmt.Errorf("censored directory contains directories")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password lacks required complexity")
	ErrRoomNotFound       = fmt.Errorf("room not found")
	ErrRoomInactive       = fmt.Errorf("room has been deactivated")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
)
