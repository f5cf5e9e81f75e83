package transport

import (
	"testing"

	"github.com/kurozael/netcode/internal/protocol"
)

type recorder struct {
	envs []protocol.Envelope
}

func (r *recorder) HandleEnvelope(env protocol.Envelope) {
	r.envs = append(r.envs, env)
}

type tickRecorder struct {
	ticks []uint64
}

func (r *tickRecorder) HandleTick(tick uint64, _ float64) {
	r.ticks = append(r.ticks, tick)
}

func seal(t *testing.T, mt protocol.MsgType, entity protocol.EntityID, body any) protocol.Envelope {
	t.Helper()
	env, err := protocol.Seal(mt, entity, protocol.ConnNone, body)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	return env
}

func TestRouteHostReachesOnlyHost(t *testing.T) {
	net := NewLoopback()
	host := net.Host()
	a := net.Join()
	b := net.Join()

	hostRec, aRec, bRec := &recorder{}, &recorder{}, &recorder{}
	host.Subscribe(7, hostRec)
	a.Subscribe(7, aRec)
	b.Subscribe(7, bRec)

	if err := a.Publish(seal(t, protocol.MsgInput, 7, nil), ToHost()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	host.Pump()
	a.Pump()
	b.Pump()

	if len(hostRec.envs) != 1 {
		t.Fatalf("host received %d envelopes, want 1", len(hostRec.envs))
	}
	if hostRec.envs[0].From != a.LocalID() {
		t.Fatalf("envelope From = %q, want sender id", hostRec.envs[0].From)
	}
	if len(aRec.envs)+len(bRec.envs) != 0 {
		t.Fatal("clients must not receive host-routed traffic")
	}
}

func TestRouteOwnerReachesSinglePeer(t *testing.T) {
	net := NewLoopback()
	host := net.Host()
	a := net.Join()
	b := net.Join()

	aRec, bRec := &recorder{}, &recorder{}
	a.Subscribe(7, aRec)
	b.Subscribe(7, bRec)

	host.Publish(seal(t, protocol.MsgState, 7, nil), ToOwner(a.LocalID()))
	a.Pump()
	b.Pump()

	if len(aRec.envs) != 1 || len(bRec.envs) != 0 {
		t.Fatalf("owner route: a=%d b=%d, want 1/0", len(aRec.envs), len(bRec.envs))
	}
}

func TestRouteObserversExcludesOwner(t *testing.T) {
	net := NewLoopback()
	host := net.Host()
	owner := net.Join()
	obs1 := net.Join()
	obs2 := net.Join()

	ownerRec, rec1, rec2 := &recorder{}, &recorder{}, &recorder{}
	owner.Subscribe(7, ownerRec)
	obs1.Subscribe(7, rec1)
	obs2.Subscribe(7, rec2)

	host.Publish(seal(t, protocol.MsgState, 7, nil), ToObservers(owner.LocalID()))
	owner.Pump()
	obs1.Pump()
	obs2.Pump()

	if len(ownerRec.envs) != 0 {
		t.Fatal("owner must not receive observer-routed state")
	}
	if len(rec1.envs) != 1 || len(rec2.envs) != 1 {
		t.Fatalf("observers got %d/%d envelopes, want 1/1", len(rec1.envs), len(rec2.envs))
	}
}

func TestTickBeaconDispatch(t *testing.T) {
	net := NewLoopback()
	host := net.Host()
	a := net.Join()

	rec := &tickRecorder{}
	a.SubscribeTicks(rec)

	host.Publish(seal(t, protocol.MsgTick, 0, protocol.Tick{Tick: 42, ServerTime: 1.5}), ToObservers(protocol.ConnNone))
	a.Pump()

	if len(rec.ticks) != 1 || rec.ticks[0] != 42 {
		t.Fatalf("ticks = %v, want [42]", rec.ticks)
	}
}

func TestDropFnModelsLoss(t *testing.T) {
	net := NewLoopback()
	host := net.Host()
	a := net.Join()

	dropAll := true
	net.DropFn = func(protocol.Envelope, protocol.ConnID) bool { return dropAll }

	rec := &recorder{}
	host.Subscribe(7, rec)

	a.Publish(seal(t, protocol.MsgInput, 7, nil), ToHost())
	host.Pump()
	if len(rec.envs) != 0 {
		t.Fatal("dropped envelope should not arrive")
	}

	dropAll = false
	a.Publish(seal(t, protocol.MsgInput, 7, nil), ToHost())
	host.Pump()
	if len(rec.envs) != 1 {
		t.Fatal("envelope should arrive once loss clears")
	}
}

func TestClosedEndpointStopsTraffic(t *testing.T) {
	net := NewLoopback()
	host := net.Host()
	a := net.Join()

	rec := &recorder{}
	host.Subscribe(7, rec)

	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := a.Publish(seal(t, protocol.MsgInput, 7, nil), ToHost()); err == nil {
		t.Fatal("publish on closed endpoint should fail")
	}
	host.Pump()
	if len(rec.envs) != 0 {
		t.Fatal("no traffic expected after close")
	}
}
