package main

import (
	"embed"
	"io/fs"
	"log"
)

// data holds the demo world used when no -data directory is given.
//
//go:embed all:data
var dataFS embed.FS

func demoData() fs.FS {
	sub, err := fs.Sub(dataFS, "data")
	if err != nil {
		log.Fatalf("embed: %v", err)
	}
	return sub
}
