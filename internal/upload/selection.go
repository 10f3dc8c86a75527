package upload

import "sync"

// Selection is the ordered list of document folders chosen by the user.
// It is replaced wholesale on every pick and never persisted.
type Selection struct {
	mu      sync.RWMutex
	folders []string
}

// Replace discards the current folders and keeps a copy of folders.
func (s *Selection) Replace(folders []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders = append([]string(nil), folders...)
}

// Folders returns a copy of the selected folders in order.
func (s *Selection) Folders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.folders...)
}

// Len returns the number of selected folders.
func (s *Selection) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.folders)
}
