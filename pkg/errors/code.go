package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 21000-21999: Room & Session errors
// 22000-22999: Participant errors
// 23000-23999: Submission & Judge errors
// 24000-24999: Problem errors
// 25000-25999: Profile & Rating errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError       ErrorCode = 10100
	RecordNotFound      ErrorCode = 10101
	RecordAlreadyExists ErrorCode = 10102
	TransactionFailed   ErrorCode = 10103

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Room & Session Errors (21000-21999) ==========

	RoomNotFound      ErrorCode = 21000
	RoomNotActive     ErrorCode = 21001
	RoomFinished      ErrorCode = 21002
	RoomAlreadyActive ErrorCode = 21003
	RoomCreateFailed  ErrorCode = 21004
	NotRoomHost       ErrorCode = 21005
	ProblemNotBound   ErrorCode = 21006
	JoinClosed        ErrorCode = 21007
	PasscodeMismatch  ErrorCode = 21008

	// ========== Participant Errors (22000-22999) ==========

	ParticipantNotFound ErrorCode = 22000
	AlreadyJoined       ErrorCode = 22001
	ViewingDenied       ErrorCode = 22002

	// ========== Submission & Judge Errors (23000-23999) ==========

	SubmissionNotFound     ErrorCode = 23000
	SubmissionCreateFailed ErrorCode = 23001
	SubmissionLimitReached ErrorCode = 23002
	NoSubmission           ErrorCode = 23003

	JudgeSystemError  ErrorCode = 23100
	JudgePoolFull     ErrorCode = 23101
	ConstructNotFound ErrorCode = 23102
	CandidateLoadFail ErrorCode = 23103

	// ========== Problem Errors (24000-24999) ==========

	ProblemNotFound     ErrorCode = 24000
	ProblemCreateFailed ErrorCode = 24001
	TestCaseInvalid     ErrorCode = 24002
	SourceUnavailable   ErrorCode = 24003

	// ========== Profile & Rating Errors (25000-25999) ==========

	ProfileNotFound     ErrorCode = 25000
	ProfileUpdateFailed ErrorCode = 25001
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:       "Database operation failed",
	RecordNotFound:      "Record not found in database",
	RecordAlreadyExists: "Record already exists",
	TransactionFailed:   "Database transaction failed",

	// Cache
	CacheError: "Cache operation failed",

	// Validation
	ValidationFailed:   "Validation failed",
	RequiredFieldEmpty: "Required field is empty",

	// Room & Session
	RoomNotFound:      "Room not found",
	RoomNotActive:     "Room is not active",
	RoomFinished:      "Room has finished",
	RoomAlreadyActive: "Room is already active",
	RoomCreateFailed:  "Failed to create room",
	NotRoomHost:       "Only the host can perform this action",
	ProblemNotBound:   "No problem is bound to this room",
	JoinClosed:        "Room is no longer accepting new participants",
	PasscodeMismatch:  "Incorrect room passcode",

	// Participant
	ParticipantNotFound: "Participant not found",
	AlreadyJoined:       "Already joined this room",
	ViewingDenied:       "You must complete the game to view solutions.",

	// Submission & Judge
	SubmissionNotFound:     "Submission not found",
	SubmissionCreateFailed: "Failed to record submission",
	SubmissionLimitReached: "You have exhausted your 3 attempts!",
	NoSubmission:           "No submission found for user.",

	JudgeSystemError:  "Judge system error",
	JudgePoolFull:     "Judge pool is full, please try again later",
	ConstructNotFound: "No solving construct found in candidate code",
	CandidateLoadFail: "Candidate code failed to load",

	// Problem
	ProblemNotFound:     "Problem not found",
	ProblemCreateFailed: "Failed to create problem",
	TestCaseInvalid:     "Invalid test case format",
	SourceUnavailable:   "Problem source is unavailable",

	// Profile
	ProfileNotFound:     "Profile not found",
	ProfileUpdateFailed: "Failed to update profile",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Unauthorized:
		return 401
	case c == Forbidden, c == NotRoomHost, c == ViewingDenied, c == PasscodeMismatch:
		return 403
	case c == NotFound, c == RoomNotFound, c == ParticipantNotFound,
		c == ProblemNotFound, c == SubmissionNotFound, c == ProfileNotFound:
		return 404
	case c == RecordAlreadyExists, c == AlreadyJoined:
		return 409
	case c == TooManyRequests, c == SubmissionLimitReached, c == JudgePoolFull:
		return 429
	case c == ServiceUnavailable, c == SourceUnavailable:
		return 503
	case c >= 10300 && c < 10400:
		return 400
	case c == InvalidParams, c == RoomNotActive, c == RoomFinished,
		c == JoinClosed, c == ProblemNotBound, c == TestCaseInvalid:
		return 400
	default:
		return 500
	}
}
