package link

import "errors"

// Domain errors for link operations.
var (
	// ErrPeerUnavailable indicates a peer that is linked, locked or blocked.
	ErrPeerUnavailable = errors.New("link: peer is not available")

	// ErrIncompatiblePeers indicates peers with different link types.
	ErrIncompatiblePeers = errors.New("link: incompatible link types")

	// ErrSamePeer indicates an attempt to link a peer to itself.
	ErrSamePeer = errors.New("link: cannot link peer to itself")

	// ErrSameNode indicates two peers that share one attach node.
	ErrSameNode = errors.New("link: peers share the same attach node")

	// ErrUnknownPeer indicates a peer ID not present in the registry.
	ErrUnknownPeer = errors.New("link: unknown peer")

	// ErrDuplicatePeer indicates a peer ID registered twice.
	ErrDuplicatePeer = errors.New("link: duplicate peer id")
)
