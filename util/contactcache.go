package util

import (
	"container/list"
	"os"
	"strconv"
	"sync"

	"github.com/ariebrainware/doctor-appointment/model"
	"gorm.io/gorm"
)

// Contact is the name and address used when mailing a patient or doctor.
type Contact struct {
	Name  string
	Email string
}

type contactKey struct {
	roleID uint32
	id     uint
}

type contactEntry struct {
	key     contactKey
	contact Contact
}

// contactLRU caches (role, id) -> Contact with least recently used eviction.
type contactLRU struct {
	mu       sync.Mutex
	ll       *list.List
	cache    map[contactKey]*list.Element
	capacity int
}

var contactCache *contactLRU

// InitContactCache initializes the LRU cache with given capacity.
// If capacity <= 0, a default of 1000 is used.
func InitContactCache(capacity int) {
	if capacity <= 0 {
		capacity = 1000
	}
	contactCache = &contactLRU{
		ll:       list.New(),
		cache:    make(map[contactKey]*list.Element),
		capacity: capacity,
	}
}

// InitContactCacheFromEnv sizes the cache from CONTACT_CACHE_SIZE.
func InitContactCacheFromEnv() {
	n, _ := strconv.Atoi(os.Getenv("CONTACT_CACHE_SIZE"))
	InitContactCache(n)
}

func contactCacheGet(roleID uint32, id uint) (Contact, bool) {
	if contactCache == nil {
		return Contact{}, false
	}
	contactCache.mu.Lock()
	defer contactCache.mu.Unlock()
	if ele, ok := contactCache.cache[contactKey{roleID, id}]; ok {
		contactCache.ll.MoveToFront(ele)
		return ele.Value.(contactEntry).contact, true
	}
	return Contact{}, false
}

func contactCacheSet(roleID uint32, id uint, c Contact) {
	if contactCache == nil {
		return
	}
	contactCache.mu.Lock()
	defer contactCache.mu.Unlock()
	key := contactKey{roleID, id}
	if ele, ok := contactCache.cache[key]; ok {
		contactCache.ll.MoveToFront(ele)
		ele.Value = contactEntry{key: key, contact: c}
		return
	}
	contactCache.cache[key] = contactCache.ll.PushFront(contactEntry{key: key, contact: c})
	if contactCache.ll.Len() > contactCache.capacity {
		tail := contactCache.ll.Back()
		delete(contactCache.cache, tail.Value.(contactEntry).key)
		contactCache.ll.Remove(tail)
	}
}

// ForgetContact drops a cached entry after a profile change.
func ForgetContact(roleID uint32, id uint) {
	if contactCache == nil {
		return
	}
	contactCache.mu.Lock()
	defer contactCache.mu.Unlock()
	key := contactKey{roleID, id}
	if ele, ok := contactCache.cache[key]; ok {
		contactCache.ll.Remove(ele)
		delete(contactCache.cache, key)
	}
}

// GetContact resolves a patient or doctor contact through the cache,
// falling back to the database. The admin has no stored contact.
func GetContact(db *gorm.DB, roleID uint32, id uint) (Contact, bool) {
	if id == 0 {
		return Contact{}, false
	}
	if c, ok := contactCacheGet(roleID, id); ok {
		return c, true
	}
	if db == nil {
		return Contact{}, false
	}

	var table string
	switch roleID {
	case model.RolePatient:
		table = "users"
	case model.RoleDoctor:
		table = "doctors"
	default:
		return Contact{}, false
	}

	var row struct {
		Name  string
		Email string
	}
	if err := db.Table(table).Select("name", "email").Where("id = ? AND deleted_at IS NULL", id).Take(&row).Error; err != nil {
		return Contact{}, false
	}
	c := Contact{Name: row.Name, Email: row.Email}
	contactCacheSet(roleID, id, c)
	return c, true
}
