package engine

import "errors"

// Error kinds returned by the engine. Callers match them with errors.Is; the
// wrapped message carries detail for logs.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrNotAMember       = errors.New("not a member of organization")
	ErrInsufficientRole = errors.New("insufficient role")
	ErrNotFound         = errors.New("not found")
	ErrDuplicateSlug    = errors.New("duplicate slug")
	ErrAlreadyMember    = errors.New("already a member")
	ErrLastOwner        = errors.New("organization must keep at least one owner")
	ErrInvalidArgument  = errors.New("invalid argument")
)
