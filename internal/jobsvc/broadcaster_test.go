package jobsvc

import (
	"testing"
	"time"
)

func TestBroadcasterDeliversMatchingJob(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	ch, unsubscribe := b.Subscribe("job-1")
	defer unsubscribe()

	b.Publish(Event{Type: EventJobComplete, JobID: "job-1"})

	select {
	case ev := <-ch:
		if ev.JobID != "job-1" || ev.Type != EventJobComplete {
			t.Errorf("received %+v, want job-1/job_complete", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscribed event")
	}
}

func TestBroadcasterFiltersOtherJobs(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	ch, unsubscribe := b.Subscribe("job-A")
	defer unsubscribe()

	b.Publish(Event{Type: EventMergeDone, JobID: "job-B"})
	b.Publish(Event{Type: EventJobComplete, JobID: "job-A"})

	select {
	case ev := <-ch:
		if ev.JobID != "job-A" {
			t.Errorf("received event for %q, want only job-A events", ev.JobID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the matching event")
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	ch, unsubscribe := b.Subscribe("job-1")
	unsubscribe()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestBroadcasterEmptyJobIDReceivesEverything(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	ch, unsubscribe := b.Subscribe("")
	defer unsubscribe()

	b.Publish(Event{Type: EventSegmentMatched, JobID: "any-job"})

	select {
	case ev := <-ch:
		if ev.JobID != "any-job" {
			t.Errorf("received %+v, want any-job", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast event")
	}
}
