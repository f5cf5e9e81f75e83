// Command arena is the terminal arena client: it predicts its own avatar
// locally, reconciles against the host and renders everyone else through
// delayed interpolation.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

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
	frameRate   = 60

	// Terminals report key presses, never releases; a pressed key stays
	// active until this long after its last repeat.
	keyHold = 200 * time.Millisecond
)

// keyIntents turns press timestamps into a held-intent bitmask.
type keyIntents struct {
	left  time.Time
	right time.Time
	jump  time.Time
}

func (k *keyIntents) current(now time.Time) game.Intent {
	var intents game.Intent
	if now.Sub(k.left) < keyHold {
		intents |= game.IntentLeft
	}
	if now.Sub(k.right) < keyHold {
		intents |= game.IntentRight
	}
	if now.Sub(k.jump) < keyHold {
		intents |= game.IntentJump
	}
	return intents
}

// peerEntry is a remote entity rendered through interpolation.
type peerEntry struct {
	avatar *game.Avatar
	ctrl   *predict.Controller[game.MoveInput, game.MoveState]
}

// client owns the session state on this side of the wire.
type client struct {
	log   *slog.Logger
	rt    *runtime.Context
	co    *tick.Coordinator
	bus   transport.Bus
	world *game.World
	opts  config.Options
	name  string

	self  *game.Avatar
	ctrl  *predict.Controller[game.MoveInput, game.MoveState]
	peers map[protocol.EntityID]*peerEntry
}

// HandleSession implements transport.SessionHandler.
func (c *client) HandleSession(env protocol.Envelope) {
	switch env.Type {
	case protocol.MsgWelcome:
		var welcome protocol.Welcome
		if err := protocol.Open(env, &welcome); err != nil {
			return
		}
		c.enter(welcome)
	case protocol.MsgSpawn:
		var spawn protocol.Spawn
		if err := protocol.Open(env, &spawn); err != nil {
			return
		}
		c.addPeer(spawn.Peer)
	case protocol.MsgDespawn:
		var despawn protocol.Despawn
		if err := protocol.Open(env, &despawn); err != nil {
			return
		}
		c.removePeer(despawn.Entity)
	}
}

// enter builds the local avatar and one observer per already-present peer.
func (c *client) enter(welcome protocol.Welcome) {
	if c.self != nil {
		return
	}
	c.co.UpdateServerTick(welcome.Tick)

	c.self = c.world.Spawn(c.name, 20, 10)
	c.ctrl = predict.NewController(predict.ControllerConfig[game.MoveInput, game.MoveState]{
		Entity:      welcome.Entity,
		Owner:       welcome.ConnID,
		Runtime:     c.rt,
		Coordinator: c.co,
		Bus:         c.bus,
		Simulator:   c.self,
		Body:        c.self,
		Options:     c.opts,
	})
	for _, peer := range welcome.Peers {
		c.addPeer(peer)
	}
	c.log.Info("entered arena", "entity", uint64(welcome.Entity), "peers", len(welcome.Peers))
}

func (c *client) addPeer(peer protocol.PeerInfo) {
	if _, ok := c.peers[peer.Entity]; ok {
		return
	}
	avatar := c.world.Spawn(string(peer.Conn), peer.X, peer.Y)
	ctrl := predict.NewController(predict.ControllerConfig[game.MoveInput, game.MoveState]{
		Entity:      peer.Entity,
		Owner:       peer.Conn,
		Runtime:     c.rt,
		Coordinator: c.co,
		Bus:         c.bus,
		Simulator:   avatar,
		Body:        avatar,
		Options:     c.opts,
	})
	c.peers[peer.Entity] = &peerEntry{avatar: avatar, ctrl: ctrl}
}

func (c *client) removePeer(entity protocol.EntityID) {
	peer, ok := c.peers[entity]
	if !ok {
		return
	}
	delete(c.peers, entity)
	peer.ctrl.Destroy()
	c.world.Despawn(peer.avatar)
}

func main() {
	addr := flag.String("addr", "ws://127.0.0.1:7777/ws", "host websocket URL")
	name := flag.String("name", "player", "display name")
	configPath := flag.String("config", "", "optional TOML tunables file")
	logPath := flag.String("log", "", "optional log file (terminal owns stderr)")
	flag.Parse()

	logWriter := io.Writer(io.Discard)
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "log open:", err)
			os.Exit(1)
		}
		defer f.Close()
		logWriter = f
	}
	log := slog.New(slog.NewTextHandler(logWriter, nil))

	opts := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
		opts = loaded
	}

	fmt.Printf("arena %s connecting to %s\n", Version, *addr)

	bus, err := transport.DialWS(*addr, 5*time.Second)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect:", err)
		os.Exit(1)
	}
	defer bus.Close()

	rt := runtime.New(bus.LocalID(), false, log)
	co := tick.NewCoordinator(rt, opts, bus)
	world := game.NewWorld(collision.Arena(arenaWidth, arenaHeight))

	c := &client{
		log:   log,
		rt:    rt,
		co:    co,
		bus:   bus,
		world: world,
		opts:  opts,
		name:  *name,
		peers: make(map[protocol.EntityID]*peerEntry),
	}
	bus.SubscribeSession(c)

	join, err := protocol.Seal(protocol.MsgJoin, 0, bus.LocalID(), protocol.Join{Name: *name})
	if err != nil {
		fmt.Fprintln(os.Stderr, "join:", err)
		os.Exit(1)
	}
	bus.Publish(join, transport.ToHost())

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, "screen:", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "screen init:", err)
		os.Exit(1)
	}
	defer screen.Fini()
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))

	events := make(chan tcell.Event, 32)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	var keys keyIntents
	frame := time.Second / frameRate
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				now := time.Now()
				switch {
				case ev.Key() == tcell.KeyEscape || ev.Rune() == 'q':
					return
				case ev.Key() == tcell.KeyLeft || ev.Rune() == 'a':
					keys.left = now
				case ev.Key() == tcell.KeyRight || ev.Rune() == 'd':
					keys.right = now
				case ev.Rune() == ' ' || ev.Rune() == 'w':
					keys.jump = now
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			if c.self != nil {
				c.self.SetIntent(keys.current(now))
			}
			bus.Pump()
			co.Update(dt)
			draw(screen, c)
		}
	}
}

// draw renders the tile map, every avatar's render transform and a HUD line.
func draw(screen tcell.Screen, c *client) {
	screen.Clear()

	wallStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	tiles := c.world.Tiles()
	for y := 0; y < tiles.Height; y++ {
		for x := 0; x < tiles.Width; x++ {
			if tiles.IsSolid(x, y) {
				screen.SetContent(x, y, '#', nil, wallStyle)
			}
		}
	}

	peerStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	for _, peer := range c.peers {
		x, y := peer.avatar.RenderPosition()
		screen.SetContent(int(x), int(y), 'o', nil, peerStyle)
	}

	if c.self != nil {
		x, y := c.self.RenderPosition()
		selfStyle := tcell.StyleDefault.Foreground(tcell.ColorGreen)
		screen.SetContent(int(x), int(y), '@', nil, selfStyle)
	}

	hud := "connecting..."
	if c.ctrl != nil {
		stats := c.ctrl.Stats()
		hud = fmt.Sprintf("tick %d  ack %d  corrections %d  peers %d",
			c.co.CurrentTick(), c.co.LastAckTick(), stats.Corrections, len(c.peers))
	}
	hudStyle := tcell.StyleDefault.Foreground(tcell.ColorTeal)
	for i, r := range hud {
		screen.SetContent(i, tiles.Height, r, nil, hudStyle)
	}

	screen.Show()
}
