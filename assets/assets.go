// Package assets embeds the default tech-term vocabulary and n-gram
// bundle shipped with the binary, grounded on other_examples' go:embed
// usage for bundling static data alongside a Go binary. These are seed
// data only: internal/coordinator copies them into the app-data
// directory on first run, and every run after that reads (and the
// presentation layer may edit) the app-data copy, never this one.
package assets

import _ "embed"

//go:embed techterms.json
var TechTerms []byte

//go:embed ngram.json
var Ngram []byte
