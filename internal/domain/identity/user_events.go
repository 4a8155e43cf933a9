package identity

import (
	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserRegisteredEvent is raised when a new user account is created
type UserRegisteredEvent struct {
	shared.BaseDomainEvent
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}

// EventType returns the event type name
func (e *UserRegisteredEvent) EventType() string {
	return "UserRegistered"
}

// NewUserRegisteredEvent creates a new UserRegisteredEvent
func NewUserRegisteredEvent(u *User) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("UserRegistered", "User", u.ID),
		UserID:          u.ID,
		Email:           u.Email,
		Role:            u.Role,
	}
}

// UserRoleChangedEvent is raised when a user's role changes
type UserRoleChangedEvent struct {
	shared.BaseDomainEvent
	UserID       uuid.UUID `json:"user_id"`
	PreviousRole Role      `json:"previous_role"`
	NewRole      Role      `json:"new_role"`
}

// EventType returns the event type name
func (e *UserRoleChangedEvent) EventType() string {
	return "UserRoleChanged"
}

// NewUserRoleChangedEvent creates a new UserRoleChangedEvent
func NewUserRoleChangedEvent(u *User, previous Role) *UserRoleChangedEvent {
	return &UserRoleChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("UserRoleChanged", "User", u.ID),
		UserID:          u.ID,
		PreviousRole:    previous,
		NewRole:         u.Role,
	}
}
