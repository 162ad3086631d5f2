package layout

import "github.com/pkg/errors"

var (
	// ErrNoMatchingLayout means no variant of a definition applies to the
	// requested target.
	ErrNoMatchingLayout = errors.New("no matching layout")
	// ErrAmbiguousLayout means more than one variant applies to the target.
	ErrAmbiguousLayout = errors.New("ambiguous layout")

	ErrUnknownType         = errors.New("unknown structure type")
	ErrDuplicateDefinition = errors.New("duplicate definition")
	ErrInvalidDefinition   = errors.New("invalid definition")
	ErrInvalidField        = errors.New("invalid field")
	ErrDuplicateField      = errors.New("duplicate field")
	ErrOverlappingField    = errors.New("overlapping field")
	ErrSizeMismatch        = errors.New("declared size smaller than fields")
	ErrRecursiveLayout     = errors.New("recursive inline layout")
)
