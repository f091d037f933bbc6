package repository

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrAlreadyJoined       = errors.New("participant already joined")
	ErrProblemNotFound     = errors.New("problem not found")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrDuplicate           = errors.New("duplicate record")
)
