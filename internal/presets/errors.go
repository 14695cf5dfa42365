package presets

import "errors"

// ErrMalformedDocument is returned when the document root itself cannot be
// decoded. Individual bad entries never produce it.
var ErrMalformedDocument = errors.New("malformed presets document")

// Structural rejections
var (
	ErrMissingField    = errors.New("missing required field")
	ErrWrongType       = errors.New("wrong JSON type")
	ErrUnknownGeometry = errors.New("unknown geometry")
)

// Policy rejections
var (
	ErrWildcardTag         = errors.New("tags contain wildcard")
	ErrEmptyTags           = errors.New("tags are empty")
	ErrUnsupportedLocation = errors.New("unsupported location code")
)

// IsPolicyRejection reports whether err is a deliberate policy rejection
// rather than a structural defect of the entry
func IsPolicyRejection(err error) bool {
	return errors.Is(err, ErrWildcardTag) ||
		errors.Is(err, ErrEmptyTags) ||
		errors.Is(err, ErrUnsupportedLocation)
}
