package service

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrStaleState           = errors.New("stale state")
	ErrVolumeExceedsBalance = errors.New("volume exceeds available balance")
	ErrMissingFreightRate   = errors.New("FOB terms require a freight rate")
	ErrNotOwner             = errors.New("client does not own this position")
	ErrOwnListing           = errors.New("cannot bid on own listing")
	ErrAcceptedBidExists    = errors.New("listing already has an accepted bid")
	ErrPriceUnavailable     = errors.New("no reference price available")
	ErrInvalidInput         = errors.New("invalid input")
)
