// Package hash provides the checksums and cache keys used by the remote layer.
//
//   - [CRC32C] / [CRC32CBase64]: integrity checksums attached to object uploads
//   - [Key]: MD5 hex digest of a locator, naming its local cache entry
//
// MD5 is used as a stable, compact name only, not for integrity or security.
package hash
