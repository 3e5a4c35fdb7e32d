package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"ai-lending-be/pkg/offer"
)

// OfferCache remembers the last offer previewed per user so that a
// follow-up acceptance persists exactly the figures the user saw.
type OfferCache struct {
	cache *cache.Cache
}

func NewOfferCache() *OfferCache {
	// Offers expire after 15 minutes; stale quotes should be recalculated.
	c := cache.New(15*time.Minute, 5*time.Minute)
	return &OfferCache{
		cache: c,
	}
}

func (r *OfferCache) Save(userID uuid.UUID, o *offer.Offer) {
	r.cache.Set(userID.String(), o, cache.DefaultExpiration)
}

func (r *OfferCache) Get(userID uuid.UUID) (*offer.Offer, bool) {
	if x, found := r.cache.Get(userID.String()); found {
		return x.(*offer.Offer), true
	}
	return nil, false
}

func (r *OfferCache) Delete(userID uuid.UUID) {
	r.cache.Delete(userID.String())
}
