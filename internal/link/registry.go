package link

import (
	"fmt"
	"sort"
)

// Registry owns a set of peers and keeps their link state consistent.
// It is not safe for concurrent use.
type Registry struct {
	peers map[string]*Peer
	order []*Peer
}

func NewRegistry() *Registry {
	return &Registry{peers: make(map[string]*Peer)}
}

// Add registers a peer. The peer keeps whatever anchor and type it was
// created with; its state is recomputed against the existing peers.
func (r *Registry) Add(p *Peer) error {
	if _, ok := r.peers[p.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePeer, p.ID)
	}
	r.peers[p.ID] = p
	r.order = append(r.order, p)
	r.refresh(p)
	return nil
}

// Remove drops a peer from the registry, unlinking it first.
func (r *Registry) Remove(id string) {
	p, ok := r.peers[id]
	if !ok {
		return
	}
	r.Unlink(p)
	delete(r.peers, id)
	for i, q := range r.order {
		if q == p {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.refreshNode(p)
}

func (r *Registry) Get(id string) (*Peer, bool) {
	p, ok := r.peers[id]
	return p, ok
}

// Peers returns the registered peers in registration order.
func (r *Registry) Peers() []*Peer {
	out := make([]*Peer, len(r.order))
	copy(out, r.order)
	return out
}

// OnBody returns the peers owned by a body.
func (r *Registry) OnBody(body BodyID) []*Peer {
	var out []*Peer
	for _, p := range r.order {
		if p.Body == body {
			out = append(out, p)
		}
	}
	return out
}

// CanLink checks every precondition of Link without changing any state.
func (r *Registry) CanLink(a, b *Peer) error {
	if err := r.owns(a); err != nil {
		return err
	}
	if err := r.owns(b); err != nil {
		return err
	}
	if a == b {
		return ErrSamePeer
	}
	if a.sharesNode(b) {
		return fmt.Errorf("%w: %s/%s", ErrSameNode, a.ID, b.ID)
	}
	if a.state != Available {
		return fmt.Errorf("%w: %s is %s", ErrPeerUnavailable, a.ID, a.state)
	}
	if b.state != Available {
		return fmt.Errorf("%w: %s is %s", ErrPeerUnavailable, b.ID, b.state)
	}
	if !a.CompatibleWith(b) {
		return fmt.Errorf("%w: %q vs %q", ErrIncompatiblePeers, a.LinkType, b.LinkType)
	}
	return nil
}

// Link connects two available, compatible peers. On error nothing changes.
func (r *Registry) Link(a, b *Peer) error {
	if err := r.CanLink(a, b); err != nil {
		return err
	}
	a.state, a.other = Linked, b
	b.state, b.other = Linked, a
	r.refreshNode(a)
	r.refreshNode(b)
	return nil
}

// Unlink breaks the link p takes part in and returns the former other end.
// It returns nil when p is not linked.
func (r *Registry) Unlink(p *Peer) *Peer {
	if p == nil || p.state != Linked {
		return nil
	}
	other := p.other
	p.other = nil
	p.state = Available
	if other != nil {
		other.other = nil
		other.state = Available
		r.refresh(other)
		r.refreshNode(other)
	}
	r.refresh(p)
	r.refreshNode(p)
	return other
}

// SetNodeBlocked marks the peer's attach node as occupied by something the
// peer cannot link with. A linked peer keeps its link; the flag applies once
// it is released.
func (r *Registry) SetNodeBlocked(p *Peer, blocked bool) error {
	if err := r.owns(p); err != nil {
		return err
	}
	p.blocked = blocked
	r.refresh(p)
	return nil
}

func (r *Registry) owns(p *Peer) error {
	if p == nil {
		return ErrUnknownPeer
	}
	if q, ok := r.peers[p.ID]; !ok || q != p {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, p.ID)
	}
	return nil
}

func (r *Registry) refresh(p *Peer) {
	if p.state == Linked {
		return
	}
	switch {
	case p.blocked:
		p.state = NodeBlocked
	case r.nodeTaken(p):
		p.state = Locked
	default:
		p.state = Available
	}
}

func (r *Registry) refreshNode(p *Peer) {
	for _, q := range r.order {
		if q != p && q.sharesNode(p) {
			r.refresh(q)
		}
	}
}

func (r *Registry) nodeTaken(p *Peer) bool {
	for _, q := range r.order {
		if q != p && q.state == Linked && q.sharesNode(p) {
			return true
		}
	}
	return false
}

// Snapshot is the persisted link state of one peer.
type Snapshot struct {
	Peer       string `json:"peer"`
	State      State  `json:"state"`
	LinkedPeer string `json:"linked_peer,omitempty"`
	Blocked    bool   `json:"blocked,omitempty"`
}

// Snapshot captures the link state of all peers, sorted by peer ID.
func (r *Registry) Snapshot() []Snapshot {
	out := make([]Snapshot, 0, len(r.order))
	for _, p := range r.order {
		s := Snapshot{Peer: p.ID, State: p.state, Blocked: p.blocked}
		if p.other != nil {
			s.LinkedPeer = p.other.ID
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Peer < out[j].Peer })
	return out
}

// Restore reapplies a snapshot to registered peers. The snapshot is
// validated first; a half-formed or dangling link rejects the whole
// snapshot and leaves the registry untouched.
func (r *Registry) Restore(snaps []Snapshot) error {
	byID := make(map[string]Snapshot, len(snaps))
	for _, s := range snaps {
		if _, ok := r.peers[s.Peer]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPeer, s.Peer)
		}
		byID[s.Peer] = s
	}
	for _, s := range snaps {
		if s.State != Linked {
			continue
		}
		o, ok := byID[s.LinkedPeer]
		if !ok || s.LinkedPeer == s.Peer || o.State != Linked || o.LinkedPeer != s.Peer {
			return fmt.Errorf("link: snapshot has half-formed link %s -> %q", s.Peer, s.LinkedPeer)
		}
	}

	for _, p := range r.order {
		if p.state == Linked {
			r.Unlink(p)
		}
	}
	for _, s := range snaps {
		r.peers[s.Peer].blocked = s.Blocked
	}
	for _, s := range snaps {
		if s.State != Linked || s.Peer > s.LinkedPeer {
			continue
		}
		a, b := r.peers[s.Peer], r.peers[s.LinkedPeer]
		a.state, a.other = Linked, b
		b.state, b.other = Linked, a
	}
	for _, p := range r.order {
		r.refresh(p)
	}
	return nil
}
