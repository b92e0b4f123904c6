package ledger

import "errors"

var (
	// ErrInsufficientStock indicates a sale asked for more units than are in stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrNoMatch indicates the resolver found no acceptable record for a query.
	ErrNoMatch = errors.New("no matching medicine")

	// ErrRecordNotFound indicates no record carries the requested id.
	ErrRecordNotFound = errors.New("medicine record not found")

	// ErrInvalidQuantity indicates a non-positive adjustment quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrStockOverflow indicates a purchase that would push stock past the int range.
	ErrStockOverflow = errors.New("stock would overflow")

	// ErrInvalidDirection indicates an adjustment direction other than sold or bought.
	ErrInvalidDirection = errors.New("unknown adjustment direction")

	// ErrPersistence indicates the snapshot could not be written; the mutation was not applied.
	ErrPersistence = errors.New("ledger persistence failed")

	// ErrSnapshotNotFound is returned by snapshot stores when nothing was saved yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
