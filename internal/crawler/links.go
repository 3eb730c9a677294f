package crawler

import (
	"sync"

	"github.com/alvmarrod/harvester/internal/parser"
)

// LinkSet is an insertion-ordered set of links keyed by exact URL. The first
// link seen for a URL wins.
type LinkSet struct {
	mu    sync.Mutex
	items []parser.LinkItem
	seen  map[string]bool
}

// NewLinkSet creates an empty set.
func NewLinkSet() *LinkSet {
	return &LinkSet{
		items: make([]parser.LinkItem, 0),
		seen:  make(map[string]bool),
	}
}

// Push adds link unless its URL is already present.
// Returns true if added, false if duplicate
func (s *LinkSet) Push(link parser.LinkItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen[link.URL] {
		return false
	}

	s.seen[link.URL] = true
	s.items = append(s.items, link)
	return true
}

// PushAll adds every link in order and returns how many were new.
func (s *LinkSet) PushAll(links []parser.LinkItem) int {
	added := 0
	for _, link := range links {
		if s.Push(link) {
			added++
		}
	}
	return added
}

// Size returns the number of distinct URLs.
func (s *LinkSet) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Items returns a snapshot of the links in first-seen order.
func (s *LinkSet) Items() []parser.LinkItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]parser.LinkItem, len(s.items))
	copy(items, s.items)
	return items
}
