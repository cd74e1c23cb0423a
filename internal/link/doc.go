// Package link models the endpoints of physical links between bodies.
//
// A [Peer] is one end of a potential link. Peers are owned by a [Registry],
// which is the only place their state changes:
//
//   - [Registry.Link]: both peers become [Linked] and reference each other
//   - [Registry.Unlink]: both peers return to [Available]
//
// Only one link can go through an attach node. While a peer is linked, the
// other peers declared on the same body and node are [Locked].
//
// # Persistence
//
// [Registry.Snapshot] and [Registry.Restore] round-trip the link state of
// every peer so that links survive a save/load cycle.
package link
