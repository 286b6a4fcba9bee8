package api

import (
	"strings"

	"github.com/google/uuid"
)

// externalIDNamespace scopes name-based user IDs derived from identity
// provider subjects that are not UUIDs themselves.
var externalIDNamespace = uuid.MustParse("8f3c1d2e-5b7a-4c9e-a1d0-6e2f4b8c7a15")

// UserIDFromExternalID returns the User ID for an identity provider subject.
// A subject that is already a UUID is used as is; any other non-empty subject
// is mapped to a stable SHA-1 name-based UUID. An empty subject yields a
// random UUID.
func UserIDFromExternalID(externalID string) uuid.UUID {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return uuid.New()
	}
	if id, err := uuid.Parse(externalID); err == nil {
		return id
	}
	return uuid.NewSHA1(externalIDNamespace, []byte(externalID))
}

// NormalizeEmail lower-cases an email address and trims surrounding
// whitespace. Stores and services compare emails only in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
