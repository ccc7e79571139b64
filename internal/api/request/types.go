package request

import (
	"errors"
	"strings"
)

// maxSlots mirrors model.SlotCount without pulling the model into decoding
const maxSlots = 5

// Validator is implemented by every request body
type Validator interface {
	Validate() error
}

// CreateGuestRequest is the body of POST /players/guest
type CreateGuestRequest struct {
	DisplayName string `json:"display_name"`
}

func (r *CreateGuestRequest) Validate() error {
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if r.DisplayName == "" {
		return errors.New("display_name is required")
	}
	return nil
}

// RegisterRequest is the body of POST /players/register
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (r *RegisterRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	switch {
	case r.Username == "":
		return errors.New("username is required")
	case r.Password == "":
		return errors.New("password is required")
	case r.DisplayName == "":
		return errors.New("display_name is required")
	}
	return nil
}

// LoginRequest is the body of POST /players/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" || r.Password == "" {
		return errors.New("username and password are required")
	}
	return nil
}

// SubmitSlotsRequest commits an array. Empty strings leave a slot unfilled.
type SubmitSlotsRequest struct {
	Slots []string `json:"slots"`
}

func (r *SubmitSlotsRequest) Validate() error {
	if len(r.Slots) == 0 || len(r.Slots) > maxSlots {
		return errors.New("slots must hold between 1 and 5 entries")
	}
	return nil
}

// ClaimExtractionRequest names the card to take from a defeated hand
type ClaimExtractionRequest struct {
	CardID string `json:"card_id"`
}

func (r *ClaimExtractionRequest) Validate() error {
	if r.CardID == "" {
		return errors.New("card_id is required")
	}
	return nil
}
