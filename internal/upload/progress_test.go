package upload

import (
	"reflect"
	"sync"
	"testing"

	"github.com/johnrirwin/gemlisting/internal/models"
)

func TestReduce_DoesNotMutateInput(t *testing.T) {
	state := map[string]int{"a": 10}
	next := Reduce(state, SetPercent{Key: "a", Percent: 60})

	if state["a"] != 10 {
		t.Errorf("input mutated: %v", state)
	}
	if next["a"] != 60 {
		t.Errorf("next=%v", next)
	}
}

func TestReduce_Actions(t *testing.T) {
	state := map[string]int{}
	state = Reduce(state, SetPercent{Key: "a", Percent: 150})
	state = Reduce(state, SetPercent{Key: "b", Percent: -5})
	state = Reduce(state, SetPercent{Key: "c", Percent: 40})

	if !reflect.DeepEqual(state, map[string]int{"a": 100, "b": 0, "c": 40}) {
		t.Fatalf("state=%v", state)
	}

	state = Reduce(state, Remove{Keys: []string{"a", "missing"}})
	if !reflect.DeepEqual(state, map[string]int{"b": 0, "c": 40}) {
		t.Fatalf("after remove state=%v", state)
	}

	if state = Reduce(state, Reset{}); len(state) != 0 {
		t.Fatalf("after reset state=%v", state)
	}
}

func TestOverall_IsMeanOfFiles(t *testing.T) {
	if got := Overall(nil); got != 0 {
		t.Errorf("Overall(nil)=%d", got)
	}
	if got := Overall(map[string]int{"a": 100, "b": 50, "c": 0}); got != 50 {
		t.Errorf("Overall=%d want=50", got)
	}
}

func TestProgress_ConcurrentDispatch(t *testing.T) {
	var mu sync.Mutex
	var last Snapshot
	p := NewProgress(func(s Snapshot) {
		mu.Lock()
		last = s
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		key := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pct := 0; pct <= 100; pct += 10 {
				p.Dispatch(SetPercent{Key: key, Percent: pct})
			}
		}()
	}
	wg.Wait()

	snap := p.Snapshot()
	if len(snap.Files) != 8 || snap.Overall != 100 {
		t.Fatalf("snapshot=%+v", snap)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(last.Files) != 8 {
		t.Errorf("listener last saw %d files", len(last.Files))
	}
}

func TestBuildManifest(t *testing.T) {
	tasks := []models.UploadTask{
		{FileName: "v.mp4", Kind: models.MediaKindVideo, S3Key: "k/v"},
		{FileName: "a.jpg", Kind: models.MediaKindImage, S3Key: "k/a"},
		{FileName: "b.jpg", Kind: models.MediaKindImage, S3Key: "k/b"},
	}

	first := BuildManifest(tasks, nil)
	second := BuildManifest(tasks, nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("manifest is not deterministic")
	}

	for i, f := range first {
		if f.Order != i {
			t.Errorf("order[%d]=%d", i, f.Order)
		}
		if f.IsPrimary != (i == 1) {
			t.Errorf("isPrimary[%d]=%v", i, f.IsPrimary)
		}
	}

	noImages := BuildManifest(tasks[:1], nil)
	if noImages[0].IsPrimary {
		t.Error("videos are never primary")
	}
}
