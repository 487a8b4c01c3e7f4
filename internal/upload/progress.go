package upload

import "sync"

// Action is a change to the per-file progress map
type Action interface {
	progressAction()
}

// SetPercent replaces the value for one file
type SetPercent struct {
	Key     string
	Percent int
}

// Remove drops the given files
type Remove struct {
	Keys []string
}

// Reset empties the map
type Reset struct{}

func (SetPercent) progressAction() {}
func (Remove) progressAction()     {}
func (Reset) progressAction()      {}

// Snapshot is an immutable view of upload progress
type Snapshot struct {
	Files   map[string]int
	Overall int
}

// Reduce applies an action to state and returns the new state. state is not modified.
func Reduce(state map[string]int, action Action) map[string]int {
	next := make(map[string]int, len(state)+1)
	for k, v := range state {
		next[k] = v
	}

	switch a := action.(type) {
	case SetPercent:
		next[a.Key] = clampPercent(a.Percent)
	case Remove:
		for _, k := range a.Keys {
			delete(next, k)
		}
	case Reset:
		return map[string]int{}
	}
	return next
}

// Overall is the mean of the per-file percentages
func Overall(state map[string]int) int {
	if len(state) == 0 {
		return 0
	}
	sum := 0
	for _, v := range state {
		sum += v
	}
	return sum / len(state)
}

// Progress holds per-file upload progress. Every concurrent upload only
// dispatches SetPercent for its own key.
type Progress struct {
	mu       sync.Mutex
	state    map[string]int
	onChange func(Snapshot)
}

// NewProgress creates a tracker. onChange may be nil.
func NewProgress(onChange func(Snapshot)) *Progress {
	return &Progress{state: map[string]int{}, onChange: onChange}
}

// Dispatch applies action and notifies the listener with the new snapshot
func (p *Progress) Dispatch(action Action) {
	p.mu.Lock()
	p.state = Reduce(p.state, action)
	snap := p.snapshotLocked()
	p.mu.Unlock()

	if p.onChange != nil {
		p.onChange(snap)
	}
}

// Snapshot returns the current state
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Progress) snapshotLocked() Snapshot {
	files := make(map[string]int, len(p.state))
	for k, v := range p.state {
		files[k] = v
	}
	return Snapshot{Files: files, Overall: Overall(p.state)}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
