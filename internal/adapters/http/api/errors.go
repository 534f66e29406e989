// Package api declares HTTP contracts and route registration helpers.
package api

import "errors"

// API error kinds.
var (
	ErrBadRequest = errors.New("bad request")
)
