package repository

import "errors"

// ErrEmailExists is returned by Create when the unique email constraint on
// the users table rejects the insert.
var ErrEmailExists = errors.New("email already exists")
