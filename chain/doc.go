// Package chain reads Pin pointers and ownership from the PinV contracts over
// Ethereum JSON-RPC.
//
// The registry maps a Pin id to its store contract; the store holds title,
// tagline and the content identifier of each published version. Reads are
// cached briefly and concurrent lookups of the same Pin share one round
// trip.
package chain
