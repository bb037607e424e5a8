package receipt

import "errors"

var (
	ErrNotFound     = errors.New("receipt: not found")
	ErrInvalidCID   = errors.New("receipt: invalid cid")
	ErrCIDMismatch  = errors.New("receipt: cid mismatch")
	ErrImmutable    = errors.New("receipt: immutable object mismatch")
	ErrNotCanonical = errors.New("receipt: bytes are not canonical")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
