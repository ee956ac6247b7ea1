package admin

import (
	"errors"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidPerformance  = errors.New("invalid performance")
	ErrPerformanceConflict = errors.New("performance already exists")
)
