package content

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedType is matched by errors returned when no converter
	// accepts a kind / content-type pair.
	ErrUnsupportedType = errors.New("content: unsupported type")

	// ErrConversionFailed is matched by errors returned when a resolved
	// converter fails.
	ErrConversionFailed = errors.New("content: conversion failed")
)

// Direction of a conversion.
type Direction string

const (
	Serialize   Direction = "serialize"
	Deserialize Direction = "deserialize"
)

// UnsupportedTypeError reports that no registered converter accepts the
// requested conversion.
type UnsupportedTypeError struct {
	Kind        Kind
	ContentType string
	Direction   Direction
}

func (e *UnsupportedTypeError) Error() string {
	if e.ContentType == "" {
		return fmt.Sprintf("content: no converter can %s %s values", e.Direction, e.Kind)
	}
	return fmt.Sprintf("content: no converter can %s %s values as %q", e.Direction, e.Kind, e.ContentType)
}

func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// ConversionError wraps a failure raised by a converter.
type ConversionError struct {
	Converter string
	Kind      Kind
	Direction Direction
	Err       error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("content: %s converter failed to %s %s value: %v", e.Converter, e.Direction, e.Kind, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func (e *ConversionError) Is(target error) bool {
	return target == ErrConversionFailed
}

func unexpectedTarget(out any) error {
	return fmt.Errorf("unexpected target type %T", out)
}
