package jobsvc

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/standardbeagle/armcorrelate/internal/binaryfile"
	"github.com/standardbeagle/armcorrelate/internal/correlate"
	"github.com/standardbeagle/armcorrelate/internal/pattern"
	"github.com/standardbeagle/armcorrelate/internal/search"
)

// ErrJobNotFound is returned when a job ID has no matching job.
var ErrJobNotFound = errors.New("job not found")

// Status is a job's lifecycle state.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Request describes one chunked-correlation run.
type Request struct {
	SourcePath      string
	TargetPaths     []string
	ScanStart       int
	ScanLen         int // negative means "to end of source"
	ChunkInstrs     int
	ToleranceInstrs int
	Options         pattern.Options
}

// Job tracks one in-flight or completed chunked-correlation run.
type Job struct {
	ID        string
	Request   Request
	CreatedAt time.Time

	mu           sync.RWMutex
	status       Status
	err          error
	selected     correlate.TaggedCorrelation
	interpolated correlate.InterpolationSet
}

func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

func (j *Job) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

func (j *Job) Result() (correlate.TaggedCorrelation, correlate.InterpolationSet) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.selected, j.interpolated
}

func (j *Job) setStatus(s Status) {
	j.mu.Lock()
	j.status = s
	j.mu.Unlock()
}

func (j *Job) fail(err error) {
	j.mu.Lock()
	j.status = StatusError
	j.err = err
	j.mu.Unlock()
}

func (j *Job) complete(selected correlate.TaggedCorrelation, interp correlate.InterpolationSet) {
	j.mu.Lock()
	j.status = StatusDone
	j.selected = selected
	j.interpolated = interp
	j.mu.Unlock()
}

// JobManager tracks in-flight and completed jobs and runs each one's
// correlation pipeline on its own goroutine, broadcasting progress events
// as it goes. Adapted from the teacher project's api.SessionManager.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *Broadcaster
}

// NewJobManager creates a JobManager that publishes progress to b.
func NewJobManager(b *Broadcaster) *JobManager {
	return &JobManager{jobs: make(map[string]*Job), broadcaster: b}
}

// CreateJob registers a new job and starts running it asynchronously.
func (jm *JobManager) CreateJob(req Request) (*Job, error) {
	id, err := generateJobID()
	if err != nil {
		return nil, err
	}
	job := &Job{ID: id, Request: req, CreatedAt: time.Now(), status: StatusQueued}

	jm.mu.Lock()
	jm.jobs[id] = job
	jm.mu.Unlock()

	go jm.run(job)
	return job, nil
}

// GetJob retrieves a job by ID.
func (jm *JobManager) GetJob(id string) (*Job, error) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	job, ok := jm.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (jm *JobManager) run(job *Job) {
	job.setStatus(StatusRunning)
	req := job.Request

	source, err := binaryfile.Load(req.SourcePath)
	if err != nil {
		job.fail(fmt.Errorf("load source: %w", err))
		jm.publishComplete(job)
		return
	}

	segs, err := correlate.ChunkSource(len(source.Bytes), req.ScanStart, req.ScanLen, req.ChunkInstrs)
	if err != nil {
		job.fail(fmt.Errorf("chunk source: %w", err))
		jm.publishComplete(job)
		return
	}

	patterns, err := correlate.CompilePatterns(source.Bytes, segs, req.Options)
	if err != nil {
		job.fail(fmt.Errorf("compile patterns: %w", err))
		jm.publishComplete(job)
		return
	}

	eng := search.New()
	perTarget := make([]correlate.Correlation, 0, len(req.TargetPaths))
	for _, targetPath := range req.TargetPaths {
		target, err := binaryfile.Load(targetPath)
		if err != nil {
			job.fail(fmt.Errorf("load target %s: %w", targetPath, err))
			jm.publishComplete(job)
			return
		}

		grid, err := correlate.CorrelateChunks(target, segs, patterns, eng)
		if err != nil {
			job.fail(fmt.Errorf("correlate chunks for %s: %w", targetPath, err))
			jm.publishComplete(job)
			return
		}
		jm.publish(job.ID, EventSegmentMatched, map[string]interface{}{
			"target": targetPath, "segments": len(segs),
		})

		correlation, err := correlate.Merge(segs, grid, req.ToleranceInstrs)
		if err != nil {
			job.fail(fmt.Errorf("merge for %s: %w", targetPath, err))
			jm.publishComplete(job)
			return
		}
		jm.publish(job.ID, EventMergeDone, map[string]interface{}{
			"target": targetPath, "entries": len(correlation),
		})

		perTarget = append(perTarget, correlation)
	}

	selected, interpolated := correlate.Select(perTarget)
	jm.publish(job.ID, EventSelectDone, map[string]interface{}{
		"entries": len(selected), "interpolated": len(interpolated),
	})

	job.complete(selected, interpolated)
	jm.publishComplete(job)
}

func (jm *JobManager) publish(jobID string, t EventType, data map[string]interface{}) {
	if jm.broadcaster == nil {
		return
	}
	jm.broadcaster.Publish(Event{Type: t, JobID: jobID, Data: data})
}

func (jm *JobManager) publishComplete(job *Job) {
	data := map[string]interface{}{"status": string(job.Status())}
	if err := job.Err(); err != nil {
		data["error"] = err.Error()
	}
	jm.publish(job.ID, EventJobComplete, data)
}

func generateJobID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
