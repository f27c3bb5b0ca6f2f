package domain

import (
	"context"
	"errors"
)

// Sentinel errors shared by adapters and the check pipeline. Adapters wrap
// these with %w so callers can classify failures with errors.Is.
var (
	// ErrMissingPrecondition means the site lacks a field the source needs,
	// such as coordinates or a region. The source is not called.
	ErrMissingPrecondition = errors.New("missing precondition")

	// ErrUnreachable covers transport failures, timeouts and non-2xx responses.
	ErrUnreachable = errors.New("source unreachable")

	// ErrMalformed means the payload did not have the expected shape.
	ErrMalformed = errors.New("malformed payload")

	// ErrNotFound means the source returned no matching entity.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous means more than one entity matched where one was expected.
	ErrAmbiguous = errors.New("ambiguous match")

	// ErrUnparsable means a matching entity had no usable status field.
	ErrUnparsable = errors.New("unparsable status")

	// ErrSiteNotFound is returned by the site directory for unknown names.
	ErrSiteNotFound = errors.New("site not found")

	// ErrSiteExists is returned when adding a site whose name is taken.
	ErrSiteExists = errors.New("site already exists")
)

// Reason maps an error to the short diagnostic used in the "reason" log attribute.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingPrecondition):
		return "missing_precondition"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAmbiguous):
		return "ambiguous"
	case errors.Is(err, ErrUnparsable):
		return "unparsable"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unreachable"
	}
}
