package serializer

import "github.com/pkg/errors"

var (
	ErrNilObject         = errors.New("nil object")
	ErrUnknownGroup      = errors.New("no structure registered for group")
	ErrTruncatedBuffer   = errors.New("read beyond end of blob")
	ErrTooDeep           = errors.New("structure nesting too deep")
	ErrFieldType         = errors.New("field value has wrong type")
	ErrInvalidFlags      = errors.New("flag value outside mask")
	ErrValueTooLarge     = errors.New("value too large for field")
	ErrCyclicGraph       = errors.New("cyclic object graph")
	ErrUnknownDependency = errors.New("unknown tag dependency")
)
