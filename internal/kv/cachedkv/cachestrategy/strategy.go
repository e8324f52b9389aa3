// Package cachestrategy defines cache eviction strategy interfaces.
package cachestrategy

import "github.com/3vilTid/Catalogue-Web-App/internal/kv"

// Strategy defines the interface for cache eviction strategies.
type Strategy interface {
	Get(key string) (kv.Record, bool)
	Add(key string, value kv.Record) bool
	Remove(key string) bool
	Purge()
	Len() int
}
