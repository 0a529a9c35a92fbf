// Package web ships the painel pages and their stylesheet inside the binary.
package web

import (
	"embed"
	"io/fs"
)

// Layout and page globs parsed by the view engine.
const (
	LayoutGlob = "templates/layouts/*.html"
	PageGlob   = "templates/pages/*.html"
)

// Templates holds the base layout and the index, regional, placar and bone pages.
//
//go:embed templates/layouts/*.html templates/pages/*.html
var Templates embed.FS

//go:embed static
var static embed.FS

// Assets returns the stylesheet tree rooted at static/, as served under /static/.
func Assets() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// fs.Sub only fails on an invalid path literal.
		panic(err)
	}
	return sub
}
