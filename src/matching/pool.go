package matching

import "github.com/elliotchance/orderedmap/v3"

// pool maps user ids to connections and iterates in insertion order.
// Re-setting an existing user keeps its original position.
type pool struct {
	entries *orderedmap.OrderedMap[string, ConnID]
}

func newPool() *pool {
	return &pool{entries: orderedmap.NewOrderedMap[string, ConnID]()}
}

func (p *pool) Set(userID string, id ConnID) {
	p.entries.Set(userID, id)
}

func (p *pool) Get(userID string) (ConnID, bool) {
	return p.entries.Get(userID)
}

func (p *pool) Has(userID string) bool {
	return p.entries.Has(userID)
}

func (p *pool) Len() int {
	return p.entries.Len()
}

func (p *pool) Delete(userID string) {
	p.entries.Delete(userID)
}

// Remove deletes userID only while it still points at id
func (p *pool) Remove(userID string, id ConnID) {
	if cur, ok := p.entries.Get(userID); ok && cur == id {
		p.entries.Delete(userID)
	}
}

// DeleteConn removes every entry that points at id
func (p *pool) DeleteConn(id ConnID) {
	for el := p.entries.Front(); el != nil; {
		next := el.Next()
		if el.Value == id {
			p.entries.Delete(el.Key)
		}
		el = next
	}
}

// Each visits entries in insertion order until fn returns false. fn must
// not modify the pool.
func (p *pool) Each(fn func(userID string, id ConnID) bool) {
	for el := p.entries.Front(); el != nil; el = el.Next() {
		if !fn(el.Key, el.Value) {
			return
		}
	}
}

func (p *pool) Keys() []string {
	keys := make([]string, 0, p.entries.Len())
	for el := p.entries.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Key)
	}
	return keys
}
