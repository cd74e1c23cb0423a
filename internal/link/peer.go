package link

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyID identifies the rigid body that owns a peer.
type BodyID int

// State is the link state of a peer.
type State int

const (
	Available State = iota
	Linked
	Locked
	NodeBlocked
)

func (s State) String() string {
	switch s {
	case Available:
		return "available"
	case Linked:
		return "linked"
	case Locked:
		return "locked"
	case NodeBlocked:
		return "node_blocked"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, error) {
	switch strings.ToLower(s) {
	case "available":
		return Available, nil
	case "linked":
		return Linked, nil
	case "locked":
		return Locked, nil
	case "node_blocked":
		return NodeBlocked, nil
	}
	return Available, fmt.Errorf("link: unknown state %q", s)
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Pose is a position and orientation in a body's local frame.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// IdentityPose is the body origin with no rotation.
func IdentityPose() Pose {
	return Pose{Orientation: mgl64.QuatIdent()}
}

// Peer is one endpoint of a potential link.
type Peer struct {
	ID         string
	Body       BodyID
	LinkType   string
	AttachNode string
	Anchor     Pose

	state   State
	blocked bool
	other   *Peer
}

// NewPeer creates an available peer.
func NewPeer(id string, body BodyID, linkType, attachNode string, anchor Pose) *Peer {
	if anchor.Orientation == (mgl64.Quat{}) {
		anchor.Orientation = mgl64.QuatIdent()
	}
	return &Peer{
		ID:         id,
		Body:       body,
		LinkType:   linkType,
		AttachNode: attachNode,
		Anchor:     anchor,
	}
}

func (p *Peer) State() State { return p.state }

// OtherPeer returns the linked peer, or nil when not linked.
func (p *Peer) OtherPeer() *Peer { return p.other }

func (p *Peer) IsLinked() bool      { return p.state == Linked }
func (p *Peer) IsLocked() bool      { return p.state == Locked }
func (p *Peer) IsNodeBlocked() bool { return p.state == NodeBlocked }

// CompatibleWith reports whether two peers can form a link with each other.
func (p *Peer) CompatibleWith(o *Peer) bool {
	return p.LinkType == o.LinkType
}

func (p *Peer) sharesNode(o *Peer) bool {
	return p.Body == o.Body && p.AttachNode == o.AttachNode
}

func (p *Peer) String() string {
	return fmt.Sprintf("%s(%s)", p.ID, p.state)
}
