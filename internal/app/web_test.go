package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/headmotion/internal/activity"
	"github.com/relabs-tech/headmotion/internal/hub"
	"github.com/relabs-tech/headmotion/internal/orientation"
)

type webFixture struct {
	srv *httptest.Server
	web *webServer
	hub *hub.Hub

	mu       sync.Mutex
	commands []ReferenceCommand
	refErr   error
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &webFixture{hub: hub.New("web-test")}
	go f.hub.Run(ctx)
	f.web = newWebServer(f.hub, func(cmd ReferenceCommand) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.commands = append(f.commands, cmd)
		return f.refErr
	}, "")
	f.srv = httptest.NewServer(f.web.routes())
	t.Cleanup(f.srv.Close)
	return f
}

func TestWebPoseAndActivity(t *testing.T) {
	f := newWebFixture(t)

	for _, path := range []string{"/api/pose", "/api/activity"} {
		resp, err := http.Get(f.srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s before data: status %d", path, resp.StatusCode)
		}
	}

	f.web.setPose(orientation.Pose{Roll: 1, Pitch: 2, Yaw: 3})
	f.web.Publish(activity.Result{Sequence: 4, Label: "shaking", Confidence: 0.9})

	resp, err := http.Get(f.srv.URL + "/api/pose")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pose status %d", resp.StatusCode)
	}
	var pose orientation.Pose
	if err := jsonDecode(resp, &pose); err != nil {
		t.Fatal(err)
	}
	if pose != (orientation.Pose{Roll: 1, Pitch: 2, Yaw: 3}) {
		t.Errorf("pose = %+v", pose)
	}

	resp2, err := http.Get(f.srv.URL + "/api/activity")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var r activity.Result
	if err := jsonDecode(resp2, &r); err != nil {
		t.Fatal(err)
	}
	if r.Label != "shaking" || r.Sequence != 4 {
		t.Errorf("activity = %+v", r)
	}
}

func TestWebReference(t *testing.T) {
	f := newWebFixture(t)

	post := func(body string) int {
		t.Helper()
		resp, err := http.Post(f.srv.URL+"/api/reference", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := post(""); code != http.StatusAccepted {
		t.Errorf("empty body: status %d", code)
	}
	if code := post(`{"action":"reset"}`); code != http.StatusAccepted {
		t.Errorf("reset: status %d", code)
	}
	if code := post(`{"action":"spin"}`); code != http.StatusBadRequest {
		t.Errorf("unknown action: status %d", code)
	}
	if code := post(`{`); code != http.StatusBadRequest {
		t.Errorf("bad json: status %d", code)
	}

	f.mu.Lock()
	if len(f.commands) != 2 || f.commands[0].Action != ReferenceSet || f.commands[1].Action != ReferenceReset {
		t.Errorf("commands = %+v", f.commands)
	}
	f.refErr = errors.New("broker down")
	f.mu.Unlock()
	if code := post(""); code != http.StatusBadGateway {
		t.Errorf("publish failure: status %d", code)
	}

	resp, err := http.Get(f.srv.URL + "/api/reference")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/reference: status %d", resp.StatusCode)
	}
}

func TestWebSocketStream(t *testing.T) {
	f := newWebFixture(t)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for f.hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	f.web.Publish(activity.Result{Sequence: 1, Label: "nodding", Confidence: 0.8})
	f.web.setPose(orientation.Pose{Yaw: 12})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second wsMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatal(err)
	}
	if first.Type != "activity" || first.Activity == nil || first.Activity.Label != "nodding" {
		t.Errorf("first = %+v", first)
	}
	if second.Type != "pose" || second.Pose == nil || second.Pose.Yaw != 12 {
		t.Errorf("second = %+v", second)
	}
}

func jsonDecode(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}
