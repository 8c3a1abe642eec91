package jobsvc

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/standardbeagle/armcorrelate/internal/correlate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second
)

// Server exposes a JobManager over HTTP: POST /jobs creates a job, GET
// /jobs/{id} polls its status and result, GET /jobs/{id}/events upgrades
// to a websocket streaming that job's progress events.
type Server struct {
	jobs        *JobManager
	broadcaster *Broadcaster
	mux         *http.ServeMux
}

// NewServer wires a JobManager and Broadcaster into an http.Handler.
func NewServer(jobs *JobManager, broadcaster *Broadcaster) *Server {
	s := &Server{jobs: jobs, broadcaster: broadcaster, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /jobs", s.handleCreateJob)
	s.mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	s.mux.HandleFunc("GET /jobs/{id}/events", s.handleJobEvents)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ChunkInstrs <= 0 {
		req.ChunkInstrs = 4
	}

	job, err := s.jobs.CreateJob(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"id": job.ID})
}

// jobView is the wire format for GET /jobs/{id}.
type jobView struct {
	ID           string                      `json:"id"`
	Status       Status                      `json:"status"`
	Error        string                      `json:"error,omitempty"`
	Selected     correlate.TaggedCorrelation `json:"selected,omitempty"`
	Interpolated int                         `json:"interpolatedCount"`
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := s.jobs.GetJob(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	view := jobView{ID: job.ID, Status: job.Status()}
	if jerr := job.Err(); jerr != nil {
		view.Error = jerr.Error()
	}
	if job.Status() == StatusDone {
		selected, interp := job.Result()
		view.Selected = selected
		view.Interpolated = len(interp)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}

func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.jobs.GetJob(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("jobsvc: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.broadcaster.Subscribe(id)
	defer unsubscribe()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
