// Package schedule runs delayed callbacks grouped under a key (a room id)
// so that everything pending for a key can be dropped at once.
package schedule

import (
	"sync"
	"time"
)

type task struct {
	timer *time.Timer
	seq   uint64
}

type Scheduler struct {
	mu    sync.Mutex
	seq   uint64
	tasks map[string]map[string]*task
}

func New() *Scheduler {
	return &Scheduler{tasks: make(map[string]map[string]*task)}
}

// After runs fn once d has elapsed, unless canceled first. Scheduling a name
// that is already pending under key replaces the earlier task.
func (s *Scheduler) After(key, name string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName, ok := s.tasks[key]
	if !ok {
		byName = make(map[string]*task)
		s.tasks[key] = byName
	}
	if old, ok := byName[name]; ok {
		old.timer.Stop()
	}
	s.seq++
	t := &task{seq: s.seq}
	t.timer = time.AfterFunc(d, func() {
		if !s.claim(key, name, t.seq) {
			return
		}
		fn()
	})
	byName[name] = t
}

// claim removes the task if it is still the current one for key/name.
func (s *Scheduler) claim(key, name string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	byName, ok := s.tasks[key]
	if !ok {
		return false
	}
	t, ok := byName[name]
	if !ok || t.seq != seq {
		return false
	}
	delete(byName, name)
	if len(byName) == 0 {
		delete(s.tasks, key)
	}
	return true
}

func (s *Scheduler) Cancel(key, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	byName, ok := s.tasks[key]
	if !ok {
		return false
	}
	t, ok := byName[name]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(byName, name)
	if len(byName) == 0 {
		delete(s.tasks, key)
	}
	return true
}

// CancelAll drops every pending task for key and returns how many there were.
func (s *Scheduler) CancelAll(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	byName := s.tasks[key]
	for _, t := range byName {
		t.timer.Stop()
	}
	delete(s.tasks, key)
	return len(byName)
}

func (s *Scheduler) Pending(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks[key])
}

// Stop cancels everything.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, byName := range s.tasks {
		for _, t := range byName {
			t.timer.Stop()
		}
		delete(s.tasks, key)
	}
}
