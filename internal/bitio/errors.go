package bitio

import "errors"

var (
	ErrShortRead  = errors.New("bitio: short read")
	ErrShortWrite = errors.New("bitio: short write")
)
