package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/khuttun/labyrinth/internal/game"
)

// Run control message data types
type TiltData struct {
	DPitch float64 `json:"d_pitch"`
	DRoll  float64 `json:"d_roll"`
}

// RunHub is the single hub for all runs.
var RunHub *Hub

func init() {
	RunHub = NewHub()
	go runRunHub(RunHub)
}

// HandleWebSocket handles WebSocket connections for runs.
func HandleWebSocket(c *gin.Context) {
	runToken := c.Param("token")
	if runToken == "" {
		runToken = c.Query("token")
	}
	if runToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}

	run, err := game.Manager.Get(runToken)
	if err != nil {
		// The in-memory run may be gone after a restart; the mirrored
		// snapshot still tells the client how the run ended.
		if snap, serr := game.Manager.LoadSnapshot(runToken); serr == nil {
			c.JSON(http.StatusGone, gin.H{"error": "run expired", "last_state": snap})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		conn:     conn,
		id:       newClientID(),
		runID:    run.ID,
		runToken: runToken,
		send:     make(chan []byte, 256),
	}

	RunHub.register <- client

	go client.writePump()
	go client.readPump()
}

// runLoops tracks the simulation loop per run, keyed by run ID. Owned by the
// hub goroutine, so no lock is needed.
var runLoops = make(map[string]chan struct{})

// runRunHub runs the hub with run-specific logic: the first watcher of a run
// starts its simulation loop, the last one leaving stops it.
func runRunHub(h *Hub) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			room, exists := h.runRooms[client.runID]
			if !exists {
				room = make(map[string]*Client)
				h.runRooms[client.runID] = room
			}
			room[client.id] = client
			first := len(room) == 1
			h.mu.Unlock()

			log.Printf("[WS] Client %s connected to run %s", client.id, client.runID)

			run, err := game.Manager.Get(client.runToken)
			if err != nil {
				log.Printf("[WS] Run not found for token: %v", err)
				client.sendError("Run not found")
				continue
			}
			run.Touch()

			client.sendInit(run)

			if first {
				stop := make(chan struct{})
				runLoops[client.runID] = stop
				go runSimulationLoop(h, run, stop)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			empty := false
			if cur, ok := h.clients[client.id]; ok && cur == client {
				delete(h.clients, client.id)
				if room, exists := h.runRooms[client.runID]; exists {
					delete(room, client.id)
					if len(room) == 0 {
						delete(h.runRooms, client.runID)
						empty = true
					}
				}

				log.Printf("[WS] Client %s disconnected from run %s", client.id, client.runID)

				select {
				case <-client.send:
				default:
					close(client.send)
				}
			}
			h.mu.Unlock()

			if empty {
				if stop, ok := runLoops[client.runID]; ok {
					close(stop)
					delete(runLoops, client.runID)
				}
				// The run itself stays with the manager: a reconnecting
				// client resumes it, the expiry checker reaps it otherwise.
				if run, err := game.Manager.Get(client.runToken); err == nil {
					game.Manager.SaveSnapshot(run, run.Snapshot())
				}
			}

		case run := <-restartChan:
			h.mu.RLock()
			watchers := len(h.runRooms[run.ID])
			h.mu.RUnlock()
			if watchers == 0 {
				continue
			}
			// The old loop has already returned on the terminal state (or is
			// about to); closing its stop channel is harmless either way.
			if stop, ok := runLoops[run.ID]; ok {
				close(stop)
			}
			stop := make(chan struct{})
			runLoops[run.ID] = stop
			go runSimulationLoop(h, run, stop)
		}
	}
}

// runSimulationLoop advances a run at the broadcast rate and publishes each
// snapshot to the room. Exits when the last watcher leaves or the run hits a
// terminal state; a restart message starts a fresh loop.
func runSimulationLoop(h *Hub, run *game.Run, stop chan struct{}) {
	hz := wsBroadcastHz()
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	// Mirror the snapshot to Redis about once a second.
	mirrorEvery := hz
	tick := 0

	log.Printf("[WS] Simulation loop started for run %s at %d Hz", run.ID, hz)
	for {
		select {
		case <-stop:
			log.Printf("[WS] Simulation loop stopped for run %s", run.ID)
			return
		case now := <-ticker.C:
			snap, terminal := run.Advance(now)
			h.BroadcastToRun(run.ID, map[string]interface{}{
				"type":  "run_state",
				"state": snap,
			})
			if terminal {
				game.Manager.Finish(run, snap)
				h.BroadcastToRun(run.ID, map[string]interface{}{
					"type":       "run_over",
					"status":     snap.Status,
					"hole":       snap.Hole,
					"elapsed_ms": snap.ElapsedMs,
				})
				return
			}
			tick++
			if tick%mirrorEvery == 0 {
				game.Manager.SaveSnapshot(run, snap)
			}
		}
	}
}

// readPump reads run control messages.
func (c *Client) readPump() {
	defer func() {
		RunHub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error (unexpected) for %s: %v", c.id, err)
			} else {
				log.Printf("WebSocket read error for %s: %v", c.id, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage processes incoming run control messages.
func (c *Client) handleMessage(msg WSMessage) {
	run, err := game.Manager.Get(c.runToken)
	if err != nil {
		c.sendError("Run not found")
		return
	}

	switch msg.Type {
	case "tilt":
		var data TiltData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid tilt data")
			return
		}
		run.Tilt(data.DPitch, data.DRoll)

	case "restart":
		c.handleRestart(run)

	case "get_state":
		d, _ := json.Marshal(map[string]interface{}{
			"type":  "run_state",
			"state": run.Snapshot(),
		})
		select {
		case c.send <- d:
		default:
			log.Printf("[WS] get_state reply dropped for %s (buffer full)", c.id)
		}

	default:
		c.sendError("Unknown message type")
	}
}

// handleRestart resets the run and revives its simulation loop if the
// previous one exited on a terminal state.
func (c *Client) handleRestart(run *game.Run) {
	wasTerminal := run.Status() != game.RunInProgress
	run.Restart()
	RunHub.BroadcastToRun(c.runID, map[string]interface{}{
		"type":  "run_restarted",
		"state": run.Snapshot(),
	})

	if wasTerminal {
		// The terminal state made the simulation loop return; ask the hub
		// for a fresh one.
		restartLoop(run)
	}
	game.Manager.SaveSnapshot(run, run.Snapshot())
}

// restartChan funnels loop restarts onto the hub goroutine, which owns
// runLoops.
var restartChan = make(chan *game.Run, 16)

func restartLoop(run *game.Run) {
	select {
	case restartChan <- run:
	default:
		log.Printf("[WS] Restart queue full for run %s", run.ID)
	}
}

// sendInit sends the board geometry and current state to a newly connected
// client.
func (c *Client) sendInit(run *game.Run) {
	board := run.Board()
	d, err := json.Marshal(map[string]interface{}{
		"type":       "run_init",
		"run_id":     run.ID,
		"level_id":   run.LevelID,
		"level_name": run.LevelName,
		"board": map[string]interface{}{
			"width":  board.Width(),
			"height": board.Height(),
			"start":  board.Start(),
			"walls":  board.Walls(),
			"holes":  board.Holes(),
			"goal":   board.Goal(),
		},
		"state": run.Snapshot(),
	})
	if err != nil {
		log.Printf("[WS] Failed to marshal init for run %s: %v", run.ID, err)
		return
	}
	c.send <- d
}
