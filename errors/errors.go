package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no censored words have been found")

	ErrSelfMessage        = fmt.Errorf("receiver must differ from sender")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrStatusRegression   = fmt.Errorf("message status never regresses")
	ErrMessageNotFound    = fmt.Errorf("message not found")
	ErrContentTooLong     = fmt.Errorf("content exceeds maximum length")
)
