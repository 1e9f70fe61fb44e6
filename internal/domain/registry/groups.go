package registry

import "sync"

// Grouper is the group-membership registry. Groups are created implicitly on
// first join and never deleted; membership only grows. A leave operation is a
// deliberate extension point, not an oversight.
type Grouper interface {
	// Join adds username to the group's member set, creating the group when
	// absent, and returns the resulting member count. Re-joining is a no-op on
	// membership but still reports the count.
	Join(groupID, username string) int
	// MembersOf returns a copy of the member set, empty for an unknown group.
	MembersOf(groupID string) []string
	Len() int
}

// Groups maps group_id -> member set. The outer map is a sync.Map for lock-free
// group lookup; each member set carries its own RWMutex so groups never contend
// with one another.
type Groups struct {
	groups sync.Map
}

type memberSet struct {
	mu      sync.RWMutex
	members map[string]struct{}
}

func NewGroups() *Groups {
	return &Groups{}
}

func (g *Groups) Join(groupID, username string) int {
	val, _ := g.groups.LoadOrStore(groupID, &memberSet{members: make(map[string]struct{})})
	ms := val.(*memberSet)

	ms.mu.Lock()
	ms.members[username] = struct{}{}
	n := len(ms.members)
	ms.mu.Unlock()
	return n
}

func (g *Groups) MembersOf(groupID string) []string {
	val, ok := g.groups.Load(groupID)
	if !ok {
		return nil
	}
	ms := val.(*memberSet)

	ms.mu.RLock()
	defer ms.mu.RUnlock()
	members := make([]string, 0, len(ms.members))
	for member := range ms.members {
		members = append(members, member)
	}
	return members
}

func (g *Groups) Len() int {
	n := 0
	g.groups.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
