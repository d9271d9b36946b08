// Package ir defines the in-memory program model that passes operate on.
//
// A Program is an ordered collection of Components. Each Component owns a
// port signature, a set of Cells (instances of other components or library
// primitives), continuous wire Assignments, named Groups, and exactly one
// Control tree describing its schedule.
//
// # Arena
//
// Ports are reachable both from their owning Cell (or the signature) and
// from every Assignment that mentions them. To keep that sharing without
// aliasing, a Component stores its Cells and Ports in arenas addressed by
// CellID and PortID. Assignments hold PortIDs, never pointers. IDs are
// local to their Component and stay stable for its lifetime; removed
// entries leave a tombstone and their IDs are never reused.
//
// # Control
//
// Control is a closed sum type. The traversal package switches over the
// concrete variants exhaustively:
//
//	*Seq, *Par, *If, *Ifen, *While, *Print, *Enable, *Disable, *Empty
package ir
