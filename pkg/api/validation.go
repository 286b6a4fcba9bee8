package api

import (
	"math"
	"net/mail"
	"strings"
)

// Field length limits for user-supplied text.
const (
	MaxNameLength        = 255
	MaxDescriptionLength = 10000
	MaxUseTimeLength     = 255
)

// MaxPrice is the largest price a product may carry. Prices are stored with
// two decimals and twelve integer digits.
const MaxPrice = 999_999_999_999.99

// RoundPrice rounds p to whole cents, the precision prices are stored with.
func RoundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}

// validText rejects text the store cannot hold.
func validText(param, s string, maxLen int) *APIError {
	if len(s) > maxLen {
		return NewInvalidRequestError(param, param+" is too long")
	}
	if strings.ContainsRune(s, 0) {
		return NewInvalidRequestError(param, param+" must not contain NUL characters")
	}
	return nil
}

// ValidateProductRequest checks a ProductRequest for validity. It returns an
// *APIError describing the first validation failure, or nil if the request is valid.
func ValidateProductRequest(req *ProductRequest) *APIError {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return NewInvalidRequestError("name", "name is required")
	}
	if apiErr := validText("name", name, MaxNameLength); apiErr != nil {
		return apiErr
	}

	if req.Price == nil {
		return NewInvalidRequestError("price", "price is required")
	}
	if math.IsNaN(*req.Price) || math.IsInf(*req.Price, 0) {
		return NewInvalidRequestError("price", "price must be a finite number")
	}
	if *req.Price < 0 {
		return NewInvalidRequestError("price", "price must not be negative")
	}
	if RoundPrice(*req.Price) > MaxPrice {
		return NewInvalidRequestError("price", "price is too large")
	}

	if apiErr := validText("description", req.Description, MaxDescriptionLength); apiErr != nil {
		return apiErr
	}
	return validText("useTime", req.UseTime, MaxUseTimeLength)
}

// ValidateEmail checks that email is a single bare address.
func ValidateEmail(email string) *APIError {
	email = strings.TrimSpace(email)
	if email == "" {
		return NewInvalidRequestError("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return NewInvalidRequestError("email", "email is not a valid address")
	}
	return nil
}

// ValidateUpdateUserRequest checks an UpdateUserRequest for validity.
func ValidateUpdateUserRequest(req *UpdateUserRequest) *APIError {
	if req.Name != nil {
		if apiErr := validText("name", *req.Name, MaxNameLength); apiErr != nil {
			return apiErr
		}
	}
	if req.Nationality != nil {
		if apiErr := validText("nationality", *req.Nationality, MaxNameLength); apiErr != nil {
			return apiErr
		}
	}
	if req.AvatarURL != nil {
		if apiErr := validText("avatarUrl", *req.AvatarURL, MaxDescriptionLength); apiErr != nil {
			return apiErr
		}
	}
	return nil
}
