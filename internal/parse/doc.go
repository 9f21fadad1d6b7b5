// Package parse turns the text output of host introspection commands into
// typed values. Every function is pure and tolerant: a missing or malformed
// field yields a neutral default (0, "", nil) instead of an error, so one bad
// source only blanks its own part of a snapshot.
package parse
