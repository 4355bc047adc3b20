// civworld writes a world directory for local play and tests: a land of
// one terrain, optionally surrounded by ocean.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/buxx/civ/internal/space"
	"github.com/buxx/civ/internal/world"
)

func main() {
	out := flag.String("out", "data/world", "output directory")
	width := flag.Uint64("width", 128, "world width in tiles")
	height := flag.Uint64("height", 128, "world height in tiles")
	chunkSize := flag.Uint64("chunk-size", 32, "chunk side in tiles, must divide width and height")
	terrainName := flag.String("terrain", "GrassLand", "land terrain")
	border := flag.Uint64("ocean-border", 0, "width of the ocean border")
	flag.Parse()

	terrain, err := world.ParseTerrain(*terrainName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	size := space.NewSize(*width, *height)
	tiles := make([]world.Tile, *width**height)
	for y := uint64(0); y < *height; y++ {
		for x := uint64(0); x < *width; x++ {
			t := terrain
			if x < *border || y < *border || x >= *width-min(*border, *width) || y >= *height-min(*border, *height) {
				t = world.Ocean
			}
			tiles[y**width+x] = world.Tile{Terrain: t}
		}
	}

	if err := world.Write(*out, world.NewReader(size, tiles), *chunkSize); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %dx%d world (%s, ocean border %d) to %s\n", *width, *height, terrain, *border, *out)
}
