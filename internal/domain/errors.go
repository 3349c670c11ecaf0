package domain

import "errors"

var (
	// ErrEmptyCompletion marks a provider response that carried no usable text.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrNotFound is returned by stores when a memorial or memory does not exist.
	ErrNotFound = errors.New("not found")
)
