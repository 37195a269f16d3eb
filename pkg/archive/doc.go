// Package archive bundles named collections into a single zip archive and
// reconstructs them from an uploaded archive or a single file.
//
// Serialization and deserialization of the individual collections fan out
// over an errgroup. A fan-out either yields every result or fails as a whole;
// callers never see a partially built archive or a partial collection set.
//
// Only opening an archive is retried. Encode and decode failures are final.
package archive
