package util

import (
	"sync"
	"time"

	"github.com/ariebrainware/doctor-appointment/model"
	cache "github.com/patrickmn/go-cache"
)

const doctorListKey = "doctors:list"

// DoctorListCache keeps the public doctor list between ledger or profile changes.
// Every Invalidate bumps a generation; a list read from the database is only
// stored when no Invalidate happened since the reader took the generation.
type DoctorListCache struct {
	mu  sync.Mutex
	gen uint64
	c   *cache.Cache
}

func NewDoctorListCache(ttl time.Duration) *DoctorListCache {
	return &DoctorListCache{c: cache.New(ttl, 2*ttl)}
}

func (d *DoctorListCache) Get() ([]model.DoctorListing, bool) {
	v, ok := d.c.Get(doctorListKey)
	if !ok {
		return nil, false
	}
	list, ok := v.([]model.DoctorListing)
	return list, ok
}

// Generation must be read before loading the list that is later passed to Set.
func (d *DoctorListCache) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

// Set stores list and reports whether it was kept. A list loaded under an
// older generation is dropped.
func (d *DoctorListCache) Set(list []model.DoctorListing, gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return false
	}
	d.c.Set(doctorListKey, list, cache.DefaultExpiration)
	return true
}

// Invalidate must be called after any write that changes a listing.
func (d *DoctorListCache) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.c.Delete(doctorListKey)
}
