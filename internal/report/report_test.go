package report

import (
	"fmt"
	"sync"
	"testing"

	"github.com/sageview/sageview/internal/search"
)

func TestStorePutGet(t *testing.T) {
	s := NewStore(10)
	id := s.Put(Report{Query: "solar sails", Depth: search.DepthShallow})
	if id == "" {
		t.Fatalf("expected non-empty id")
	}
	got, ok := s.Get(id)
	if !ok || got.Query != "solar sails" {
		t.Fatalf("expected stored report back, got %+v ok=%v", got, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatalf("expected miss for unknown id")
	}
}

func TestStoreEvictsOldest(t *testing.T) {
	s := NewStore(3)
	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, s.Put(Report{Query: fmt.Sprintf("q%d", i)}))
	}
	if s.Len() != 3 {
		t.Fatalf("expected capacity held at 3, got %d", s.Len())
	}
	if _, ok := s.Get(ids[0]); ok {
		t.Fatalf("expected oldest report evicted")
	}
	for _, id := range ids[1:] {
		if _, ok := s.Get(id); !ok {
			t.Fatalf("expected %s retained", id)
		}
	}
}

func TestStoreConcurrentPut(t *testing.T) {
	s := NewStore(50)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Put(Report{Query: "c"})
		}()
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Fatalf("expected store bounded at 50, got %d", s.Len())
	}
}
