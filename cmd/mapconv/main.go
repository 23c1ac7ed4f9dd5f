// Command mapconv converts sidescroller editor levels into tileworld maps.
// Each level.json becomes maps/<level>.map and maps/<level>.yaml under the
// output directory; the tilesets and entity sprites they reference are
// written as shared sheets/tilesN.tga atlases and sprites/*.tga.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
)

func main() {
	out := flag.String("out", "data", "output data directory")
	assets := flag.String("assets", "assets", "directory tileset and sprite paths are relative to")
	tileSize := flag.Int("tile", 16, "output tile size in pixels")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: mapconv [flags] level.json...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 || *tileSize <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	c := newConverter(*tileSize, *assets)
	for _, p := range flag.Args() {
		lvl, err := LoadLevel(p)
		if err != nil {
			log.Fatal(err)
		}
		c.add(levelName(p), lvl)
	}
	if err := c.convertAll(*out); err != nil {
		log.Fatal(err)
	}
	log.Printf("converted %d levels, %d atlases, %d sprites into %s", len(c.levels), len(c.atlases), len(c.sprites), *out)
}
