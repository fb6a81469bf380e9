package model

import (
	"time"

	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
)

// PolicyCacheEntry is one loaded generation of enabled policies. Entries are
// replaced wholesale and never edited in place.
type PolicyCacheEntry struct {
	Policies   []model.Policy
	LoadedAt   time.Time
	Generation uint64
}
