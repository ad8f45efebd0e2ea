package models

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrSignalNotPending = errors.New("signal is not pending")
	ErrNotBuySignal     = errors.New("signal is not a BUY")
	ErrPositionExists   = errors.New("position already open")
	ErrNoSlots          = errors.New("all position slots are in use")
	ErrNoPosition       = errors.New("no open position")
	ErrInsufficientData = errors.New("insufficient price history")
	ErrBusy             = errors.New("another operation holds the lock")
	ErrInvalidInput     = errors.New("invalid input")
)
