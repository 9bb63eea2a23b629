package ledger

import "errors"

// Sentinel errors for the ledger service layer.
var (
	// ErrNotFound is returned when no contact exists for an address.
	ErrNotFound = errors.New("contact not found")

	// ErrCapExceeded is returned when appending a sent event would push a
	// daily or organization counter past its cap. The append is rolled
	// back; nothing is recorded.
	ErrCapExceeded = errors.New("send cap exceeded")

	// ErrDuplicateInitial is returned when appending a second initial sent
	// event for a contact that already has one.
	ErrDuplicateInitial = errors.New("initial send already recorded for contact")

	// ErrStoreUnavailable wraps repository failures that make the ledger
	// unreadable or unwritable. Fatal to the current run: no decision is
	// safe without ledger state.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)
