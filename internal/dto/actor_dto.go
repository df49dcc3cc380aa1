package dto

import "github.com/google/uuid"

// Actor is the verified caller as seen by the service layer.
type Actor struct {
	UserId  uuid.UUID
	IsAdmin bool
}
