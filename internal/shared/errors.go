package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Session errors
	ErrAuthFailed    = fmt.Errorf("authentication failed")
	ErrReactorClosed = fmt.Errorf("reactor closed")
	ErrLocked        = fmt.Errorf("output directory locked by another run")

	// Catalog errors
	ErrAPIRequest = fmt.Errorf("catalog request failed")
	ErrNotFound   = fmt.Errorf("not found")

	// Extraction errors
	ErrExtraction = fmt.Errorf("cannot extract track id")

	// Resolution errors
	ErrResolution             = fmt.Errorf("track resolution failed")
	ErrCatalogUnavailable     = fmt.Errorf("%w: catalog unavailable", ErrResolution)
	ErrNoAvailableAlternative = fmt.Errorf("%w: no available alternative", ErrResolution)

	// Selection errors
	ErrSelection          = fmt.Errorf("format selection failed")
	ErrNoCompatibleFormat = fmt.Errorf("%w: no compatible format", ErrSelection)

	// Fetch errors
	ErrFetch      = fmt.Errorf("fetch failed")
	ErrKeyRequest = fmt.Errorf("%w: cannot get audio key", ErrFetch)
	ErrStreamOpen = fmt.Errorf("%w: cannot open file stream", ErrFetch)
	ErrStreamRead = fmt.Errorf("%w: cannot read file stream", ErrFetch)
	ErrDecrypt    = fmt.Errorf("%w: cannot decrypt stream", ErrFetch)

	// Delivery errors
	ErrDelivery     = fmt.Errorf("delivery failed")
	ErrHelperFailed = fmt.Errorf("%w: helper returned an error", ErrDelivery)

	// Batch errors
	ErrBatchIncomplete = fmt.Errorf("batch finished with failures")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
