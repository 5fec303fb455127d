// Copyright 2024 The feedcore Authors
// This file is part of the feedcore library.
//
// The feedcore library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The feedcore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the feedcore library. If not, see <http://www.gnu.org/licenses/>.

package feed

import "fmt"

// Error codes
const (
	ErrInit = iota
	ErrNotFound
	ErrFeedNotFound
	ErrIndexNotFound
	ErrInvalidValue
	ErrUnsupportedFeedType
	ErrIndexOverflow
	ErrUnauthorized
	ErrCorruptData
	ErrCnt
)

// Error is a the typed error object used for feed operations
type Error struct {
	code int
	err  string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.err
}

// Code returns the error code.
// Error codes are enumerated in error.go
func (e *Error) Code() int {
	return e.code
}

// NewError creates a new feed Error object with the specified code and
// custom error message
func NewError(code int, s string) error {
	if code < 0 || code >= ErrCnt {
		panic("no such error code")
	}
	r := &Error{
		err:  s,
		code: code,
	}
	return r
}

// NewErrorf is a convenience version of NewError that incorporates printf-style formatting
func NewErrorf(code int, format string, args ...interface{}) error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Code extracts the feed error code from err, or -1 if err is not a feed Error
func Code(err error) int {
	e, ok := err.(*Error)
	if !ok {
		return -1
	}
	return e.code
}
