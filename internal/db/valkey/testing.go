package valkey

import "github.com/redis/rueidis"

// NewStoreForTest wraps the provided rueidis client, typically a mock.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
