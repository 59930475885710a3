package domain

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrEmptyRoomName  = errors.New("room name is required")
	ErrMessageTooLong = errors.New("message too long")
)
