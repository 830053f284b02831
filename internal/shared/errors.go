package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Session errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrNotAuthorized    = fmt.Errorf("not authorized")

	// Catalog and completion errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrBookNotFound       = fmt.Errorf("book not found")
	ErrFetchFailed        = fmt.Errorf("failed to fetch book")
	ErrMalformedResponse  = fmt.Errorf("malformed response")

	// Store errors
	ErrDuplicateEntry   = fmt.Errorf("book already saved")
	ErrEntryNotFound    = fmt.Errorf("library entry not found")
	ErrCommentNotFound  = fmt.Errorf("comment not found")
	ErrUserNotFound     = fmt.Errorf("user not found")
	ErrEmailTaken       = fmt.Errorf("email already registered")
	ErrCacheMiss        = fmt.Errorf("cache miss")
	ErrSubscriptionDone = fmt.Errorf("subscription closed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrValidation      = fmt.Errorf("validation failed")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
