package domain

import "errors"

var (
	// ErrKeyNotFound is returned by a KVStore when a key has no value.
	ErrKeyNotFound = errors.New("key not found")

	// ErrNotAvailable is returned by the cache coordinator when a
	// collection is neither in a hot layer nor fresh in the persistent
	// store. The caller is expected to fetch from the remote store.
	ErrNotAvailable = errors.New("not available locally")

	// ErrDrainInProgress is returned when a drain is requested while
	// another drain is already running.
	ErrDrainInProgress = errors.New("drain already in progress")

	// ErrUnknownKind is returned for an operation kind with no payload
	// schema or registered handler.
	ErrUnknownKind = errors.New("unknown operation kind")

	// ErrInvalidPayload is returned when a payload fails its kind's
	// validation schema at enqueue time.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrOffline is returned by remote store calls attempted without
	// connectivity.
	ErrOffline = errors.New("client is offline")
)
