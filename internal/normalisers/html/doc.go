// Package html provides a Normaliser implementation for HTML documents.
// It walks the token stream with golang.org/x/net/html, drops scripts,
// styles and other invisible elements, and keeps one line per block.
package html
