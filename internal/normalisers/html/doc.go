// Package html provides a Normaliser for HTML documents and fetched web pages.
// It removes scripts, styles, navigation, headers and footers, strips the
// remaining tags and decodes entities.
package html
