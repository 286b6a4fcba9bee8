package api

import (
	"time"

	"github.com/google/uuid"
)

// User is a marketplace member. The ID is derived from the identity
// provider's subject (see UserIDFromExternalID) and never changes.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Nationality string    `json:"nationality,omitempty"`
	ExternalID  string    `json:"externalId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Product is an item offered by a User. OwnerID and CreatedAt are fixed at
// creation; only the content fields change afterwards.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description,omitempty"`
	UseTime     string    `json:"useTime,omitempty"`
	OwnerID     uuid.UUID `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RegisterRequest is the body of POST /api/users/auth/register.
// Email and SupabaseID are optional; when present they must match the
// verified credential.
type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	SupabaseID  string `json:"supabaseId,omitempty"`
}

// LoginRequest is the body of POST /api/users/auth/login.
type LoginRequest struct {
	Email      string `json:"email,omitempty"`
	SupabaseID string `json:"supabaseId,omitempty"`
}

// UpdateUserRequest is the body of PUT /api/users/{id}. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name        *string `json:"name,omitempty"`
	Nationality *string `json:"nationality,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}

// ProductRequest is the body of product create and update calls.
// Price is a pointer so a missing price can be told apart from zero.
// Any id or ownerId fields sent by the client are ignored.
type ProductRequest struct {
	Name        string   `json:"name"`
	Price       *float64 `json:"price"`
	Description string   `json:"description,omitempty"`
	UseTime     string   `json:"useTime,omitempty"`
}

// UserResponse is the public view of a User.
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Nationality string    `json:"nationality,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
}

// ProductResponse is the public view of a Product, including the owner's
// display name.
type ProductResponse struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description,omitempty"`
	UseTime     string    `json:"useTime,omitempty"`
	UserName    string    `json:"userName"`
	UserID      uuid.UUID `json:"userId"`
}

// AuthResponse is returned by the register and login endpoints.
type AuthResponse struct {
	Message string        `json:"message"`
	User    *UserResponse `json:"user,omitempty"`
	Success bool          `json:"success"`
}

// NewUserResponse builds the public view of u.
func NewUserResponse(u *User) *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		CreatedAt:   u.CreatedAt,
		Name:        u.DisplayName,
		Email:       u.Email,
		Nationality: u.Nationality,
		AvatarURL:   u.AvatarURL,
	}
}

// NewProductResponse builds the public view of p. ownerName is the owner's
// display name, or empty when the owner could not be resolved.
func NewProductResponse(p *Product, ownerName string) *ProductResponse {
	return &ProductResponse{
		ID:          p.ID,
		CreatedAt:   p.CreatedAt,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		UseTime:     p.UseTime,
		UserName:    ownerName,
		UserID:      p.OwnerID,
	}
}
