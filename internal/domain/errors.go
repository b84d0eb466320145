package domain

import "errors"

var ErrInvalidIdentifier = errors.New("invalid track identifier")
var ErrNotFound = errors.New("not found")
var ErrOriginExhausted = errors.New("all origin providers exhausted")
var ErrEncoderNotFound = errors.New("encoder binary not found")
