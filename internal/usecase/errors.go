package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrFetch  = errors.New("source fetch error")
	ErrEncode = errors.New("encode error")
)

func wrapFetch(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrFetch, err)
}

func wrapEncode(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrEncode, err)
}
