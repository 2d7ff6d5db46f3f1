package feed

import "errors"

// ErrPostNotFound is returned when the referenced post does not exist.
var ErrPostNotFound = errors.New("post not found")
