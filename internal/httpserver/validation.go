package httpserver

import (
	"strings"
)

func validateRegisterRequest(req *RegisterRequest) error {
	if req.Username == "" {
		return NewValidationError("Username is required")
	}

	if len(req.Username) < 2 {
		return NewValidationError("Username must be at least 2 characters long")
	}

	if len(req.Username) > 28 {
		return NewValidationError("Username must be not more than 28 characters long")
	}

	if req.Email == "" {
		return NewValidationError("Email is required")
	}

	if !strings.Contains(req.Email, "@") || !strings.Contains(req.Email, ".") {
		return NewValidationError("Invalid email format")
	}

	if len(req.Password) < 8 {
		return NewValidationError("Password must be at least 8 characters")
	}

	return nil
}

func validateStatus(status string) error {
	if status == "" {
		return NewValidationError("Status is required")
	}

	if len(status) > 20 {
		return NewValidationError("Status must be not more than 20 characters long")
	}

	return nil
}

func validateSignalSendRequest(req *SignalSendRequest) error {
	if req.CallID == "" {
		return NewValidationError("call_id is required")
	}

	if req.Type == "" {
		return NewValidationError("type is required")
	}

	if req.Content == "" {
		return NewValidationError("content is required")
	}

	return nil
}

func validateGroupCallRequest(req *GroupCallRequest) error {
	if len(req.Participants) == 0 {
		return NewValidationError("At least one participant is required")
	}

	if req.SessionKey == "" {
		return NewValidationError("session_key is required")
	}

	return nil
}
