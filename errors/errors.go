// Copyright 2023 The CubeFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package errors

import (
	"errors"
	"fmt"
)

// Code is the status carried back to the caller of an object class method.
// Log protocol statuses are small positive values, object store level
// failures are negative errno style values.
type Code int32

const (
	CodeOK           Code = 0
	CodeStaleEpoch   Code = 1
	CodeReadOnly     Code = 2
	CodeNotWritten   Code = 3
	CodeInvalidated  Code = 4
	CodeInvalidEpoch Code = 5

	CodeNotFound        Code = -2
	CodeIO              Code = -5
	CodeWrongTarget     Code = -14
	CodeBusy            Code = -16
	CodeAlreadyExists   Code = -17
	CodeInvalidArgument Code = -22
	CodeTooLarge        Code = -27
	CodeNotSupported    Code = -95
)

var codeNames = map[Code]string{
	CodeOK:              "ok",
	CodeStaleEpoch:      "stale epoch",
	CodeReadOnly:        "read only",
	CodeNotWritten:      "not written",
	CodeInvalidated:     "invalidated",
	CodeInvalidEpoch:    "invalid epoch",
	CodeNotFound:        "not found",
	CodeIO:              "io error",
	CodeWrongTarget:     "wrong target object",
	CodeBusy:            "busy",
	CodeAlreadyExists:   "already exists",
	CodeInvalidArgument: "invalid argument",
	CodeTooLarge:        "too large",
	CodeNotSupported:    "not supported",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int32(c))
}

type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// Is matches any *Error carrying the same code, so a message-specific error
// still compares equal to its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrStaleEpoch   = &Error{Code: CodeStaleEpoch, Msg: "stale epoch"}
	ErrReadOnly     = &Error{Code: CodeReadOnly, Msg: "position is read only"}
	ErrNotWritten   = &Error{Code: CodeNotWritten, Msg: "position not written"}
	ErrInvalidated  = &Error{Code: CodeInvalidated, Msg: "position invalidated"}
	ErrInvalidEpoch = &Error{Code: CodeInvalidEpoch, Msg: "epoch not greater than sealed epoch"}

	ErrNotFound        = &Error{Code: CodeNotFound, Msg: "not found"}
	ErrIO              = &Error{Code: CodeIO, Msg: "io error"}
	ErrWrongTarget     = &Error{Code: CodeWrongTarget, Msg: "position maps to another object"}
	ErrBusy            = &Error{Code: CodeBusy, Msg: "too many requests"}
	ErrAlreadyExists   = &Error{Code: CodeAlreadyExists, Msg: "already exists"}
	ErrInvalidArgument = &Error{Code: CodeInvalidArgument, Msg: "invalid argument"}
	ErrTooLarge        = &Error{Code: CodeTooLarge, Msg: "too large"}
	ErrNotSupported    = &Error{Code: CodeNotSupported, Msg: "not supported"}

	ErrUnknownClass  = &Error{Code: CodeNotSupported, Msg: "unknown object class"}
	ErrUnknownMethod = &Error{Code: CodeNotSupported, Msg: "unknown object class method"}
	ErrCorruptMeta   = &Error{Code: CodeIO, Msg: "corrupt object metadata"}
	ErrMissingMeta   = &Error{Code: CodeIO, Msg: "missing object metadata"}
)

var sentinels = map[Code]*Error{
	CodeStaleEpoch:      ErrStaleEpoch,
	CodeReadOnly:        ErrReadOnly,
	CodeNotWritten:      ErrNotWritten,
	CodeInvalidated:     ErrInvalidated,
	CodeInvalidEpoch:    ErrInvalidEpoch,
	CodeNotFound:        ErrNotFound,
	CodeIO:              ErrIO,
	CodeWrongTarget:     ErrWrongTarget,
	CodeBusy:            ErrBusy,
	CodeAlreadyExists:   ErrAlreadyExists,
	CodeInvalidArgument: ErrInvalidArgument,
	CodeTooLarge:        ErrTooLarge,
	CodeNotSupported:    ErrNotSupported,
}

// CodeOf returns the status code of err. Errors that carry no code are
// reported as CodeIO.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeIO
}

// FromCode rebuilds an error from a status code and an optional message.
func FromCode(code Code, msg string) error {
	if code == CodeOK {
		return nil
	}
	if msg == "" {
		if e, ok := sentinels[code]; ok {
			return e
		}
		msg = code.String()
	}
	return &Error{Code: code, Msg: msg}
}
