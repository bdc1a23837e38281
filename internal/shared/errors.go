package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed     = fmt.Errorf("authentication failed")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// Remote API errors
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrTransient        = fmt.Errorf("transient remote failure")
	ErrRateLimited      = fmt.Errorf("rate limited")
	ErrStaleSnapshot    = fmt.Errorf("stale snapshot")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrTrackNotFound    = fmt.Errorf("track not found")

	// Pin errors
	ErrPinConflict   = fmt.Errorf("position already pinned")
	ErrPinNotFound   = fmt.Errorf("pin not found")
	ErrDataIntegrity = fmt.Errorf("unresolvable track reference")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
