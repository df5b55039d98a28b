// Package content fetches Pin manifests from IPFS by content identifier.
//
// Manifests are immutable once published, so a fetched manifest is kept for
// the life of the process. Raw-codec identifiers are checked against the
// fetched bytes before they are trusted.
package content
