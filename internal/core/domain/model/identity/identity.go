// Package identity describes who is on the other end of a relay connection.
//
// An Identity is resolved once, when the connection is opened, and never
// changes for the life of the session.
package identity

import (
	"errors"
	"fmt"

	"tracking/internal/pkg/errs"
	"tracking/internal/pkg/guard"
)

// Role is the part a user plays in a delivery.
type Role int

const (
	// UnknownRole catches uninitialized values.
	UnknownRole Role = iota

	// Vendor prepares the order and hands it to a delivery partner.
	Vendor

	// Delivery is the delivery partner (agent) that emits location samples.
	Delivery

	// Customer receives the order.
	Customer
)

func getRoleStrings() map[Role]string {
	return map[Role]string{
		UnknownRole: "unknown",
		Vendor:      "vendor",
		Delivery:    "delivery",
		Customer:    "customer",
	}
}

// ParseRole maps "vendor", "delivery" or "customer" to a Role.
func ParseRole(s string) (Role, error) {
	for role, name := range getRoleStrings() {
		if role != UnknownRole && name == s {
			return role, nil
		}
	}
	return UnknownRole, errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%q is not a valid role", s))
}

func (r Role) String() string {
	if s, ok := getRoleStrings()[r]; ok {
		return s
	}
	return "unknown"
}

// Validate rejects UnknownRole and out of range values.
func (r Role) Validate() error {
	if r <= UnknownRole || r > Customer {
		return errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%d is not a valid role", r))
	}
	return nil
}

// ErrIdentityIsNotConstructed is returned for zero value identities.
var ErrIdentityIsNotConstructed = errors.New("Identity must be created via NewIdentity constructor")

// Identity is the authenticated user id and role of a session.
type Identity struct {
	userID string
	role   Role
	guard  guard.ConstructorGuard
}

// NewIdentity validates and returns an identity.
func NewIdentity(userID string, role Role) (Identity, error) {
	if userID == "" {
		return Identity{}, errs.NewValueIsRequiredError("userId")
	}
	if err := role.Validate(); err != nil {
		return Identity{}, err
	}

	return Identity{userID: userID, role: role, guard: guard.NewConstructorGuard()}, nil
}

func (i Identity) Validate() error {
	return i.guard.Validate(ErrIdentityIsNotConstructed)
}

func (i Identity) UserID() string {
	return i.userID
}

func (i Identity) Role() Role {
	return i.role
}

// IsAgent reports whether the identity is a delivery partner.
func (i Identity) IsAgent() bool {
	return i.role == Delivery
}

func (i Identity) String() string {
	return fmt.Sprintf("%s(%s)", i.role, i.userID)
}
