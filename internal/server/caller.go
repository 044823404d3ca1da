package server

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/wolfeidau/tenancy/internal/auth"
)

func callerID(ctx context.Context) (string, error) {
	caller, ok := auth.CallerFromContext(ctx)
	if !ok || caller.UserID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errors.New("not authenticated"))
	}
	return caller.UserID, nil
}
