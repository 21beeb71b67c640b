package enums

import (
	"fmt"
	"strings"
)

// ActorRole is the identity kind resolved from an access token.
type ActorRole string

const (
	RoleCustomer ActorRole = "customer"
	RoleSeller   ActorRole = "seller"
	RoleAdmin    ActorRole = "admin"
)

func (r ActorRole) String() string {
	return string(r)
}

func ParseActorRole(value string) (ActorRole, error) {
	switch role := ActorRole(strings.ToLower(strings.TrimSpace(value))); role {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return role, nil
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
