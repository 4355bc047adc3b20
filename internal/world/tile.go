package world

import "fmt"

type Terrain uint32

const (
	GrassLand Terrain = iota
	Plain
	Forest
	Hill
	Mountain
	Desert
	Tundra
	Snow
	Swamp
	Jungle
	Lake
	Ocean
	DeepOcean
	terrainCount
)

var terrainNames = [...]string{
	"GrassLand", "Plain", "Forest", "Hill", "Mountain", "Desert", "Tundra",
	"Snow", "Swamp", "Jungle", "Lake", "Ocean", "DeepOcean",
}

func (t Terrain) Valid() bool {
	return t < terrainCount
}

func (t Terrain) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Terrain(%d)", uint32(t))
	}
	return terrainNames[t]
}

// ParseTerrain returns the terrain with the given name.
func ParseTerrain(name string) (Terrain, error) {
	for i, n := range terrainNames {
		if n == name {
			return Terrain(i), nil
		}
	}
	return 0, fmt.Errorf("unknown terrain %q", name)
}

// IsWater reports whether units cannot stand on the terrain.
func (t Terrain) IsWater() bool {
	return t == Lake || t == Ocean || t == DeepOcean
}

type Tile struct {
	Terrain Terrain
}

// CtxTile is a tile as seen through a window: either a world tile or a
// point outside the world.
type CtxTile struct {
	Outside bool
	Tile    Tile
}

func Visible(t Tile) CtxTile {
	return CtxTile{Tile: t}
}

func OutsideTile() CtxTile {
	return CtxTile{Outside: true}
}
