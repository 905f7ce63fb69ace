package network

import "errors"

// ErrEmptySeedSet marks a build with no seeds. Build returns an empty
// network and a warning rather than this error.
var ErrEmptySeedSet = errors.New("graph builder given no seeds")
