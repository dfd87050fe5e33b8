package authorization

import (
	"context"
	"errors"
)

type Service interface {
	Authorize(ctx context.Context, actor string, object string, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

// Actor prefixes understood by Authorize.
const (
	ActorAdminPrefix = "admin:"
	ActorUserPrefix  = "user:"
)

func AdminActor(name string) string { return ActorAdminPrefix + name }

func UserActor(userID string) string { return ActorUserPrefix + userID }
