package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kurozael/netcode/internal/protocol"
)

func startHost(t *testing.T) (*WSHost, string) {
	t.Helper()
	host := NewWSHost()
	mux := http.NewServeMux()
	mux.Handle("/ws", host)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	t.Cleanup(func() { host.Close() })
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	return host, url
}

// waitFor pumps the bus until the condition holds or the deadline passes.
func waitFor(t *testing.T, bus Bus, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		bus.Pump()
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWSHandshakeAssignsIdentity(t *testing.T) {
	_, url := startHost(t)

	client, err := DialWS(url, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if client.LocalID() == protocol.ConnNone || client.LocalID() == HostID {
		t.Fatalf("client identity = %q, want fresh ConnID", client.LocalID())
	}
}

func TestWSClientToHostDelivery(t *testing.T) {
	host, url := startHost(t)

	client, err := DialWS(url, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	rec := &recorder{}
	host.Subscribe(9, rec)

	env, err := protocol.Seal(protocol.MsgInput, 9, client.LocalID(), nil)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if err := client.Publish(env, ToHost()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitFor(t, host, func() bool { return len(rec.envs) == 1 })
	if rec.envs[0].From != client.LocalID() {
		t.Fatalf("From = %q, want client id", rec.envs[0].From)
	}
}

func TestWSOwnerAndObserverRouting(t *testing.T) {
	host, url := startHost(t)

	owner, err := DialWS(url, 2*time.Second)
	if err != nil {
		t.Fatalf("dial owner: %v", err)
	}
	defer owner.Close()
	observer, err := DialWS(url, 2*time.Second)
	if err != nil {
		t.Fatalf("dial observer: %v", err)
	}
	defer observer.Close()

	ownerRec, obsRec := &recorder{}, &recorder{}
	owner.Subscribe(9, ownerRec)
	observer.Subscribe(9, obsRec)

	env, err := protocol.Seal(protocol.MsgState, 9, HostID, nil)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	host.Publish(env, ToOwner(owner.LocalID()))
	host.Publish(env, ToObservers(owner.LocalID()))

	waitFor(t, observer, func() bool { return len(obsRec.envs) == 1 })
	waitFor(t, owner, func() bool { return len(ownerRec.envs) == 1 })
}

func TestWSClientRejectsNonHostRoutes(t *testing.T) {
	_, url := startHost(t)

	client, err := DialWS(url, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	env, err := protocol.Seal(protocol.MsgState, 9, client.LocalID(), nil)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if err := client.Publish(env, ToObservers(protocol.ConnNone)); err == nil {
		t.Fatal("client publish to observers should be rejected")
	}
}

func TestWSDisconnectSurfacesInPump(t *testing.T) {
	host, url := startHost(t)

	client, err := DialWS(url, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	var gone []protocol.ConnID
	host.OnDisconnect = func(conn protocol.ConnID) { gone = append(gone, conn) }

	id := client.LocalID()
	client.Close()

	waitFor(t, host, func() bool { return len(gone) == 1 })
	if gone[0] != id {
		t.Fatalf("disconnect reported %q, want %q", gone[0], id)
	}
}
