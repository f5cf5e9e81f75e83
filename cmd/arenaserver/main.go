// Command arenaserver is the dedicated arena host: it owns the authoritative
// simulation, drains client inputs and broadcasts state.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/kurozael/netcode/internal/collision"
	"github.com/kurozael/netcode/internal/config"
	"github.com/kurozael/netcode/internal/game"
	"github.com/kurozael/netcode/internal/predict"
	"github.com/kurozael/netcode/internal/protocol"
	"github.com/kurozael/netcode/internal/runtime"
	"github.com/kurozael/netcode/internal/tick"
	"github.com/kurozael/netcode/internal/transport"
)

// Version is set at build time
var Version = "dev"

const (
	arenaWidth  = 40
	arenaHeight = 20
	spawnX      = 20.0
	spawnY      = 10.0
	frameRate   = 60
)

// session tracks the entities the host has handed out.
type session struct {
	log   *slog.Logger
	rt    *runtime.Context
	co    *tick.Coordinator
	bus   *transport.WSHost
	world *game.World
	opts  config.Options

	nextEntity protocol.EntityID
	players    map[protocol.ConnID]*player
}

type player struct {
	entity protocol.EntityID
	avatar *game.Avatar
	ctrl   *predict.Controller[game.MoveInput, game.MoveState]
}

// HandleSession implements transport.SessionHandler.
func (s *session) HandleSession(env protocol.Envelope) {
	switch env.Type {
	case protocol.MsgJoin:
		var join protocol.Join
		if err := protocol.Open(env, &join); err != nil {
			s.log.Debug("bad join", "err", err)
			return
		}
		s.admit(env.From, join.Name)
	}
}

// admit spawns an avatar for a joining connection and replies with the
// session roster.
func (s *session) admit(conn protocol.ConnID, name string) {
	if _, ok := s.players[conn]; ok {
		return
	}
	s.nextEntity++
	avatar := s.world.Spawn(name, spawnX, spawnY)
	ctrl := predict.NewController(predict.ControllerConfig[game.MoveInput, game.MoveState]{
		Entity:      s.nextEntity,
		Owner:       conn,
		Runtime:     s.rt,
		Coordinator: s.co,
		Bus:         s.bus,
		Simulator:   avatar,
		Body:        avatar,
		Options:     s.opts,
	})
	p := &player{entity: s.nextEntity, avatar: avatar, ctrl: ctrl}
	s.players[conn] = p
	s.log.Info("player joined", "conn", string(conn), "name", name, "entity", uint64(p.entity))

	peers := make([]protocol.PeerInfo, 0, len(s.players)-1)
	for otherConn, other := range s.players {
		if otherConn == conn {
			continue
		}
		x, y := other.avatar.RenderPosition()
		peers = append(peers, protocol.PeerInfo{Entity: other.entity, Conn: otherConn, X: x, Y: y})
	}

	welcome, err := protocol.Seal(protocol.MsgWelcome, p.entity, s.rt.ID, protocol.Welcome{
		ConnID: conn,
		Entity: p.entity,
		Tick:   s.co.CurrentTick(),
		Peers:  peers,
	})
	if err == nil {
		s.bus.Publish(welcome, transport.ToOwner(conn))
	}

	spawn, err := protocol.Seal(protocol.MsgSpawn, p.entity, s.rt.ID, protocol.Spawn{
		Peer: protocol.PeerInfo{Entity: p.entity, Conn: conn, X: spawnX, Y: spawnY},
	})
	if err == nil {
		s.bus.Publish(spawn, transport.ToObservers(conn))
	}
}

// drop removes a disconnected player's entity everywhere.
func (s *session) drop(conn protocol.ConnID) {
	p, ok := s.players[conn]
	if !ok {
		return
	}
	delete(s.players, conn)
	p.ctrl.Destroy()
	s.world.Despawn(p.avatar)
	s.log.Info("player left", "conn", string(conn), "entity", uint64(p.entity))

	despawn, err := protocol.Seal(protocol.MsgDespawn, p.entity, s.rt.ID, protocol.Despawn{Entity: p.entity})
	if err == nil {
		s.bus.Publish(despawn, transport.ToObservers(protocol.ConnNone))
	}
}

func main() {
	addr := flag.String("addr", ":7777", "listen address")
	configPath := flag.String("config", "", "optional TOML tunables file")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	opts := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Error("config load failed", "err", err)
			os.Exit(1)
		}
		opts = loaded
	}

	rt := runtime.New(transport.HostID, true, log)
	bus := transport.NewWSHost()
	co := tick.NewCoordinator(rt, opts, bus)
	world := game.NewWorld(collision.Arena(arenaWidth, arenaHeight))

	s := &session{
		log:     log,
		rt:      rt,
		co:      co,
		bus:     bus,
		world:   world,
		opts:    opts,
		players: make(map[protocol.ConnID]*player),
	}
	bus.SubscribeSession(s)
	bus.OnDisconnect = s.drop

	mux := http.NewServeMux()
	mux.Handle("/ws", bus)
	server := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "err", err)
			os.Exit(1)
		}
	}()

	fmt.Printf("arenaserver %s listening on %s\n", Version, *addr)
	log.Info("host started", "tickInterval", opts.TickInterval)

	frame := time.Second / frameRate
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	last := time.Now()
	for now := range ticker.C {
		dt := now.Sub(last).Seconds()
		last = now
		bus.Pump()
		co.Update(dt)
	}
}
