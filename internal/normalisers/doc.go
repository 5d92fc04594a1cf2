// Package normalisers provides implementations of the Normaliser interface
// for the knowledge-base formats. Each normaliser knows how to extract
// documents from a specific MIME type.
//
// Normalisers are registered with the Registry at startup.
package normalisers
