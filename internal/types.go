package internal

import (
	"github.com/cardledger/soldscraper/services/cache"
	"github.com/cardledger/soldscraper/services/publisher"
	"github.com/cardledger/soldscraper/services/store"
)

// Dependencies holds the optional backing services. A nil field means the
// feature it supports is switched off.
type Dependencies struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Store     store.CardStore
}
