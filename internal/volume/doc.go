// Package volume defines the contract between the file layer and a flat,
// flash-backed filesystem driver.
//
// A Driver owns a single volume with no directory tree. It hands out
// opaque descriptors for open files and answers volume-wide queries
// (usage, capacity, listing, physical placement).
//
// Implementations:
//   - memfs: in-memory volume with page-accounted capacity
//   - hostfs: volume stored as regular files in one host directory
//   - chaos: fault-injecting wrapper around any Driver
//
// All driver calls are synchronous and blocking.
package volume
