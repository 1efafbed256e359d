// Package models defines the catalog entities and planning units shared by every trackdl package.
//
// Catalog identifiers:
//   - [ID] : 128-bit catalog identifier for tracks, artists and albums, with a base62 codec
//   - [FileID] : 20-byte reference to one encoded audio file
//
// Catalog metadata:
//   - [Track] : name, artists, album, availability, alternatives and the file map
//   - [Artist], [Album] : display names
//   - [FileFormat], [Representation] : one encoding of a track's audio
//
// Planning:
//   - [WorkItem] : a resolved, not-yet-fetched track with its output filename
//   - [Download] : a history row for a delivered item
package models
