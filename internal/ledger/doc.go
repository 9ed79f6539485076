// Package ledger implements the proof-of-work block chain that seals custody
// transactions.
//
// The chain begins with a mined genesis block whose PreviousHash is the
// sentinel "0". Every later block stores the hash of its predecessor, and
// every block's hash must both match a recomputation of its content and
// satisfy the configured difficulty predicate (a leading-zero hex prefix).
// Verify walks the whole chain and reports the first block that breaks any
// of those rules.
//
// Mined blocks can optionally be persisted through a Store:
//   - MemoryStore: in-process, for testing and development.
//   - PostgresStore: durable, for production use.
package ledger
