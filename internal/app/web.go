// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/headmotion/internal/activity"
	"github.com/relabs-tech/headmotion/internal/config"
	"github.com/relabs-tech/headmotion/internal/hub"
	"github.com/relabs-tech/headmotion/internal/orientation"
)

// wsMessage is one frame of the /ws stream.
type wsMessage struct {
	Type     string            `json:"type"` // "pose" or "activity"
	Pose     *orientation.Pose `json:"pose,omitempty"`
	Activity *activity.Result  `json:"activity,omitempty"`
}

type webServer struct {
	hub       *hub.Hub
	reference func(ReferenceCommand) error
	staticDir string

	mu       sync.RWMutex
	lastPose orientation.Pose
	havePose bool
	lastAct  activity.Result
	haveAct  bool
}

func newWebServer(h *hub.Hub, reference func(ReferenceCommand) error, staticDir string) *webServer {
	return &webServer{hub: h, reference: reference, staticDir: staticDir}
}

func (s *webServer) setPose(p orientation.Pose) {
	s.mu.Lock()
	s.lastPose = p
	s.havePose = true
	s.mu.Unlock()

	if err := s.hub.BroadcastJSON(wsMessage{Type: "pose", Pose: &p}); err != nil {
		log.Printf("web: broadcast pose: %v", err)
	}
}

// Publish implements activity.Sink.
func (s *webServer) Publish(r activity.Result) {
	s.mu.Lock()
	s.lastAct = r
	s.haveAct = true
	s.mu.Unlock()

	if err := s.hub.BroadcastJSON(wsMessage{Type: "activity", Activity: &r}); err != nil {
		log.Printf("web: broadcast activity: %v", err)
	}
}

func (s *webServer) routes() http.Handler {
	mux := http.NewServeMux()

	// JSON API endpoint: latest relative pose
	mux.HandleFunc("GET /api/pose", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		p, ok := s.lastPose, s.havePose
		s.mu.RUnlock()

		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, p)
	})

	// JSON API endpoint: latest activity
	mux.HandleFunc("GET /api/activity", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		act, ok := s.lastAct, s.haveAct
		s.mu.RUnlock()

		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, act)
	})

	// Reference frame: empty body or {"action":"set"} zeroes the pose on
	// the current attitude, {"action":"reset"} goes back to the sensor frame.
	mux.HandleFunc("POST /api/reference", func(w http.ResponseWriter, r *http.Request) {
		var cmd ReferenceCommand
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, fmt.Sprintf("invalid body: %v", err), http.StatusBadRequest)
			return
		}
		if cmd.Action == "" {
			cmd.Action = ReferenceSet
		}
		if cmd.Action != ReferenceSet && cmd.Action != ReferenceReset {
			http.Error(w, fmt.Sprintf("unknown action %q", cmd.Action), http.StatusBadRequest)
			return
		}
		if err := s.reference(cmd); err != nil {
			log.Printf("web: reference command error: %v", err)
			http.Error(w, "reference command failed", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusAccepted, cmd)
	})

	mux.Handle("GET /ws", s.hub)

	// Static files as the root
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func RunWeb(ctx context.Context) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	h := hub.New("web")
	go h.Run(ctx)

	s := newWebServer(h, func(cmd ReferenceCommand) error {
		return publishJSON(client, cfg.TopicReference, false, cmd)
	}, cfg.WebStaticDir)

	err = subscribe(client, cfg.TopicPose, func(_ mqtt.Client, msg mqtt.Message) {
		var p orientation.Pose
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("web: pose unmarshal error: %v", err)
			return
		}
		s.setPose(p)
	})
	if err != nil {
		return err
	}

	err = subscribe(client, cfg.TopicActivity, func(_ mqtt.Client, msg mqtt.Message) {
		var r activity.Result
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("web: activity unmarshal error: %v", err)
			return
		}
		s.Publish(r)
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Println("web: shutting down")
	return srv.Shutdown(shutdownCtx)
}
