package store

// BaseGraphStore is the base implementation of a GraphStore. Client is the underlying datastore client, such as a
// database driver.
type BaseGraphStore[T any] struct {
	Client T
}
