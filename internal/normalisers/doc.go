// Package normalisers provides implementations of the Normaliser interface
// for the document formats the agent ingests. Each normaliser extracts text
// from one family of MIME types.
//
// Normalisers are registered with a Registry at startup.
package normalisers
