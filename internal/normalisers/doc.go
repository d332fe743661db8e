// Package normalisers provides implementations of the Normaliser interface
// for the upload formats. Each normaliser knows how to extract text from a
// specific MIME type; the Registry picks one per upload.
package normalisers
