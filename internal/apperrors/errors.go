package apperrors

import "errors"

// Ledger errors represent malformed transaction records. They are fatal for
// the offending record only; the rest of the ledger keeps processing.
var (
	// ErrInvalidTransactionType indicates a ledger record whose type is not
	// one of buy, sell or initial.
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrInvalidTransactionValue indicates a ledger record with a
	// non-positive quantity or price.
	ErrInvalidTransactionValue = errors.New("transaction quantity and price must be positive")

	// ErrInsufficientShares indicates a sell transaction for more shares
	// than the user currently holds.
	ErrInsufficientShares = errors.New("insufficient shares for sale")

	// ErrMissingRequiredField indicates that a required field is missing or empty.
	ErrMissingRequiredField = errors.New("missing required field")
)

// Domain entity errors represent missing entities in the system.
var (
	// ErrUserNotFound indicates that a user with the given ID does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrSecurityNotFound indicates that a ticker has no security record.
	ErrSecurityNotFound = errors.New("security not found")

	// ErrPriceNotFound indicates no price record for a ticker/date combination.
	// Callers recover locally by substitution or omission; this is never a
	// hard user-facing failure.
	ErrPriceNotFound = errors.New("price not found")

	// ErrCacheEntryNotFound indicates no cached result for a user/period combination.
	ErrCacheEntryNotFound = errors.New("cached period result not found")

	// ErrUnknownPeriod indicates a period key outside the supported set.
	ErrUnknownPeriod = errors.New("unknown period")

	// ErrProviderConfigNotFound indicates the market data provider has not
	// been configured.
	ErrProviderConfigNotFound = errors.New("provider configuration not found")
)

// Business logic errors represent constraint violations.
var (
	// ErrSnapshotImmutable indicates an attempt to overwrite a snapshot for
	// a closed prior trading day outside the explicit backfill path.
	ErrSnapshotImmutable = errors.New("snapshot for a closed day is immutable")

	// ErrSnapshotBeforeFirstTransaction indicates an attempt to snapshot a
	// date earlier than the user's first ledger record.
	ErrSnapshotBeforeFirstTransaction = errors.New("snapshot date precedes first transaction")
)

// External interface errors represent failures talking to the price source.
var (
	// ErrExternalPriceTimeout indicates an external price fetch exceeded its
	// time budget. Callers fall back to cached or substitute pricing.
	ErrExternalPriceTimeout = errors.New("external price request timed out")

	// ErrNoExternalData indicates the external source returned no usable
	// data for the requested ticker.
	ErrNoExternalData = errors.New("no data returned by external price source")
)
