package server

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenancy/internal/engine"
)

// connectError converts an engine error into a Connect error. Errors the
// engine does not classify are logged and reported as internal without detail.
func connectError(procedure string, err error) error {
	var code connect.Code
	switch {
	case errors.Is(err, engine.ErrUnauthenticated):
		code = connect.CodeUnauthenticated
	case errors.Is(err, engine.ErrInsufficientRole):
		code = connect.CodePermissionDenied
	case errors.Is(err, engine.ErrNotAMember):
		// same answer as a missing organization
		return connect.NewError(connect.CodeNotFound, errors.New("organization not found"))
	case errors.Is(err, engine.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, engine.ErrDuplicateSlug), errors.Is(err, engine.ErrAlreadyMember):
		code = connect.CodeAlreadyExists
	case errors.Is(err, engine.ErrLastOwner):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, engine.ErrInvalidArgument):
		code = connect.CodeInvalidArgument
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	default:
		log.Error().Err(err).Str("procedure", procedure).Msg("Request failed")
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
	return connect.NewError(code, err)
}

func invalidArgument(msg string) error {
	return connect.NewError(connect.CodeInvalidArgument, errors.New(msg))
}
