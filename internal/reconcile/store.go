package reconcile

import "github.com/grokgates/gateview/internal/snapshot"

// Node is one rendered message in the feed.
type Node struct {
	Key       string
	Agent     string
	Timestamp int64
	Content   string
}

// MessageStore is the id-keyed, arrival-ordered collection of rendered
// messages. After every Apply its contents are exactly the composite keys of
// the most recently reconciled snapshot's current conversation. Mutation
// happens only through the Reconciler.
type MessageStore struct {
	order []string
	nodes map[string]*Node
}

// NewMessageStore returns an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{nodes: make(map[string]*Node)}
}

// Len returns the number of messages.
func (s *MessageStore) Len() int { return len(s.order) }

// Get returns the node for a composite key.
func (s *MessageStore) Get(key string) (Node, bool) {
	n, ok := s.nodes[key]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns copies of all nodes in arrival order.
func (s *MessageStore) Nodes() []Node {
	out := make([]Node, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, *s.nodes[k])
	}
	return out
}

func (s *MessageStore) append(m snapshot.Message) *Node {
	n := &Node{Key: m.Key(), Agent: m.Agent, Timestamp: m.Timestamp, Content: m.Content}
	s.order = append(s.order, n.Key)
	s.nodes[n.Key] = n
	return n
}

func (s *MessageStore) remove(key string) {
	if _, ok := s.nodes[key]; !ok {
		return
	}
	delete(s.nodes, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *MessageStore) clear() {
	s.order = s.order[:0]
	s.nodes = make(map[string]*Node)
}
