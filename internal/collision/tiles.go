// Package collision implements the demo arena's world geometry: a tile grid
// for static walls and floors, AABB sweeps for the movers.
package collision

// TileFlag represents collision properties of a tile
type TileFlag uint8

const (
	TileEmpty  TileFlag = 0
	TileSolid  TileFlag = 1 << iota // Blocks movement from all directions
	TileHazard                      // Hazard marker; the arena never sets it and no mover reacts to it
)

// TileMap holds collision data for the arena
type TileMap struct {
	Width  int
	Height int
	Tiles  []TileFlag
}

// NewTileMap creates a tile map with given dimensions
func NewTileMap(width, height int) *TileMap {
	return &TileMap{
		Width:  width,
		Height: height,
		Tiles:  make([]TileFlag, width*height),
	}
}

// Get returns the tile flag at the given position
func (m *TileMap) Get(x, y int) TileFlag {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return TileSolid // Out of bounds = solid
	}
	return m.Tiles[y*m.Width+x]
}

// Set sets the tile flag at the given position
func (m *TileMap) Set(x, y int, flag TileFlag) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.Tiles[y*m.Width+x] = flag
}

// IsSolid checks if the tile blocks movement
func (m *TileMap) IsSolid(x, y int) bool {
	return m.Get(x, y)&TileSolid != 0
}

// SolidInBox reports whether any solid tile intersects the box.
func (m *TileMap) SolidInBox(box AABB) bool {
	minX := int(box.X)
	maxX := int(box.X + box.Width)
	minY := int(box.Y)
	maxY := int(box.Y + box.Height)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if !m.IsSolid(x, y) {
				continue
			}
			tile := AABB{X: float64(x), Y: float64(y), Width: 1, Height: 1}
			if tile.Overlaps(box) {
				return true
			}
		}
	}
	return false
}

// Arena builds the demo level: a walled room with a few platforms. The
// layout is fixed so every peer constructs an identical world.
func Arena(width, height int) *TileMap {
	if width < 40 {
		width = 40
	}
	if height < 20 {
		height = 20
	}
	m := NewTileMap(width, height)

	for x := 0; x < width; x++ {
		m.Set(x, height-1, TileSolid)
		m.Set(x, 0, TileSolid)
	}
	for y := 0; y < height; y++ {
		m.Set(0, y, TileSolid)
		m.Set(width-1, y, TileSolid)
	}

	for x := 5; x < 12; x++ {
		m.Set(x, height-5, TileSolid)
	}
	for x := 15; x < 22; x++ {
		m.Set(x, height-8, TileSolid)
	}
	for x := 25; x < 32; x++ {
		m.Set(x, height-5, TileSolid)
	}

	return m
}
