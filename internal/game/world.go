package game

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/kurozael/netcode/internal/collision"
)

// World holds the arena's entities and geometry. Every peer builds the same
// world from the same tile layout; only who simulates which avatar differs.
type World struct {
	ecs    ecs.World
	movers *ecs.Map4[Position, Velocity, Grounded, Render]
	tiles  *collision.TileMap

	avatars []*Avatar
}

// NewWorld creates a world over the given geometry.
func NewWorld(tiles *collision.TileMap) *World {
	w := &World{
		ecs:   ecs.NewWorld(),
		tiles: tiles,
	}
	mapper := ecs.NewMap4[Position, Velocity, Grounded, Render](&w.ecs)
	w.movers = &mapper
	return w
}

// Tiles returns the world geometry.
func (w *World) Tiles() *collision.TileMap {
	return w.tiles
}

// Spawn creates an avatar at the given tile position.
func (w *World) Spawn(name string, x, y float64) *Avatar {
	entity := w.movers.NewEntity(
		&Position{X: x, Y: y},
		&Velocity{},
		&Grounded{},
		&Render{X: x, Y: y},
	)
	a := &Avatar{world: w, entity: entity, name: name}
	w.avatars = append(w.avatars, a)
	return a
}

// Despawn removes an avatar and its entity.
func (w *World) Despawn(a *Avatar) {
	for i, other := range w.avatars {
		if other == a {
			w.avatars = append(w.avatars[:i], w.avatars[i+1:]...)
			break
		}
	}
	if w.ecs.Alive(a.entity) {
		w.ecs.RemoveEntity(a.entity)
	}
}

// Avatars returns the live avatars, in spawn order.
func (w *World) Avatars() []*Avatar {
	return w.avatars
}
