package symbol

import "errors"

// Domain errors for symbolization.
var (
	// ErrInvalidCatalog is returned when a catalog document cannot be decoded.
	ErrInvalidCatalog = errors.New("symbol: invalid catalog")

	// ErrNoEvent is returned when the XML document has no event root element.
	ErrNoEvent = errors.New("symbol: document has no event element")

	// ErrNoType is returned when the event element has no type attribute.
	ErrNoType = errors.New("symbol: event has no type attribute")
)
