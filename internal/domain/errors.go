package domain

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("session has a request in flight")
	ErrEmptyMessage    = errors.New("message text is required")
	ErrInvalidRole     = errors.New("invalid message role")
	ErrUploadRejected  = errors.New("upload rejected by policy")
	ErrInvalidRequest  = errors.New("invalid request")
)
