package realtime

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

func recvUnlock(t *testing.T, ch <-chan types.ModuleUnlock, timeout time.Duration) types.ModuleUnlock {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for unlock event")
	}
	return types.ModuleUnlock{}
}

func TestHubRoutesByUserAndKeepsOrder(t *testing.T) {
	hub := NewHub(logger.Nop())
	a := hub.Subscribe("u1")
	b := hub.Subscribe("u2")

	hub.Broadcast(types.ModuleUnlock{UserID: "u1", ModuleID: "m1"})
	hub.Broadcast(types.ModuleUnlock{UserID: "u1", ModuleID: "m2"})

	if got := recvUnlock(t, a.Outbound, time.Second).ModuleID; got != "m1" {
		t.Fatalf("first = %s", got)
	}
	if got := recvUnlock(t, a.Outbound, time.Second).ModuleID; got != "m2" {
		t.Fatalf("second = %s", got)
	}
	select {
	case ev := <-b.Outbound:
		t.Fatalf("u2 received %+v", ev)
	default:
	}
}

func TestHubUnsubscribeClosesAndIsIdempotent(t *testing.T) {
	hub := NewHub(logger.Nop())
	c := hub.Subscribe("u1")
	hub.Unsubscribe(c)
	hub.Unsubscribe(c)

	if _, ok := <-c.Outbound; ok {
		t.Fatalf("outbound should be closed")
	}
	if n := hub.Subscribers("u1"); n != 0 {
		t.Fatalf("subscribers = %d", n)
	}
	hub.Broadcast(types.ModuleUnlock{UserID: "u1", ModuleID: "m1"})
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(logger.Nop())
	c := hub.Subscribe("u1")
	for i := 0; i < outboundBuffer+5; i++ {
		hub.Broadcast(types.ModuleUnlock{UserID: "u1", ModuleID: "m"})
	}
	if got := len(c.Outbound); got != outboundBuffer {
		t.Fatalf("buffered = %d, want %d", got, outboundBuffer)
	}
}

func TestHubServeWritesEvents(t *testing.T) {
	hub := NewHub(logger.Nop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := hub.Subscribe("u1")
		defer hub.Unsubscribe(c)
		hub.Serve(w, r, c)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("u1") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Broadcast(types.ModuleUnlock{UserID: "u1", ModuleID: "m9", Level: types.LevelBasics})

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" && len(lines) > 0 {
			break
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) != 2 || lines[0] != "event: "+EventModuleUnlocked || !strings.Contains(lines[1], `"module_id":"m9"`) {
		t.Fatalf("unexpected frame: %q", lines)
	}
}
