package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidTitle    = errors.New("invalid title")
	ErrInvalidColumnID = errors.New("invalid column id")
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidQuantity = errors.New("invalid quantity")
)
