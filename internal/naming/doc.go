// Package naming generates collision-free output names and failure-marker
// names next to an input file.
//
// A [Scheme] enumerates candidate names for n = 0, 1, 2, …:
//
//	converted: Movie.converted.mkv, Movie.converted.1.mkv, Movie.converted.2.mkv
//	fail:      Movie.avi.fail, Movie.avi.fail_1, Movie.avi.fail_2
//
// [Resolver] reads the directory once into a [Ledger], picks the first
// candidate that neither the ledger nor the disk knows about, and renames
// without replacing. Failure markers are how a failed file is excluded from
// later scans, so [IsFailMarker] is the single definition of that suffix.
package naming
