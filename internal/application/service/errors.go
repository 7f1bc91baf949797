package service

import "errors"

var (
	// ErrRequestNotFound is returned when a request does not exist or is not visible to the viewer
	ErrRequestNotFound = errors.New("request not found")

	// ErrUserNotFound is returned when an acting user is not in the directory
	ErrUserNotFound = errors.New("user not found")

	// ErrNotificationNotFound is returned when a notification does not exist for the user
	ErrNotificationNotFound = errors.New("notification not found")

	// errLostRace marks a compare-and-set update that found the request already moved
	errLostRace = errors.New("request changed concurrently")
)
