package session

import (
	"net"
	"sync"
	"testing"

	"gotelnet/util"
)

// TestRegistry_AddRemove verifies IDs are assigned monotonically and
// membership tracks Add/Remove.
func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry()
	logger := util.NewLogger(0)

	s1 := New(nil, nil, nil, logger)
	s2 := New(nil, nil, nil, logger)

	if id := r.Add(s1); id != 1 {
		t.Errorf("first ID = %d, want 1", id)
	}
	if id := r.Add(s2); id != 2 {
		t.Errorf("second ID = %d, want 2", id)
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}

	r.Remove(s1.ID)
	if r.Len() != 1 {
		t.Errorf("Len after remove = %d, want 1", r.Len())
	}

	// Removing an absent ID is a no-op.
	r.Remove(999)
	if r.Len() != 1 {
		t.Errorf("Len after bogus remove = %d, want 1", r.Len())
	}
}

// TestRegistry_EachOrdered verifies Each visits sessions in ID order.
func TestRegistry_EachOrdered(t *testing.T) {
	r := NewRegistry()
	logger := util.NewLogger(0)

	for i := 0; i < 5; i++ {
		r.Add(New(nil, nil, nil, logger))
	}

	var ids []uint64
	r.Each(func(s *Session) { ids = append(ids, s.ID) })

	if len(ids) != 5 {
		t.Fatalf("visited %d sessions, want 5", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("IDs not ascending: %v", ids)
		}
	}
}

// TestRegistry_EachReentrant verifies the callback may use the registry
// without deadlocking.
func TestRegistry_EachReentrant(t *testing.T) {
	r := NewRegistry()
	r.Add(New(nil, nil, nil, util.NewLogger(0)))

	done := make(chan struct{})
	go func() {
		r.Each(func(s *Session) {
			if r.Len() != 1 {
				t.Errorf("Len inside Each = %d", r.Len())
			}
		})
		close(done)
	}()

	<-done
}

// TestRegistry_CountByIP verifies per-IP counting against live
// connections.
func TestRegistry_CountByIP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 2)
	go func() {
		for i := 0; i < 2; i++ {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- conn
		}
	}()

	r := NewRegistry()
	logger := util.NewLogger(0)

	for i := 0; i < 2; i++ {
		conn, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()

		sess := New(<-accepted, nil, nil, logger)
		defer sess.Close()
		r.Add(sess)
	}

	if got := r.CountByIP("127.0.0.1"); got != 2 {
		t.Errorf("CountByIP(127.0.0.1) = %d, want 2", got)
	}
	if got := r.CountByIP("192.0.2.1"); got != 0 {
		t.Errorf("CountByIP(192.0.2.1) = %d, want 0", got)
	}
}

// TestRegistry_CloseAll verifies every connection is closed while
// membership is left for the owning handlers to drain.
func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry()
	logger := util.NewLogger(0)

	var sessions []*Session
	for i := 0; i < 3; i++ {
		client, server := net.Pipe()
		defer server.Close()

		sess := New(client, nil, nil, logger)
		r.Add(sess)
		sessions = append(sessions, sess)
	}

	r.CloseAll()

	for _, s := range sessions {
		if !s.Closed() {
			t.Errorf("session %d not closed", s.ID)
		}
	}
	if r.Len() != 3 {
		t.Errorf("Len = %d, want 3 (handlers remove themselves)", r.Len())
	}
}

// TestRegistry_Concurrent verifies add/remove from many goroutines
// leaves the registry empty and consistent.
func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	logger := util.NewLogger(0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s := New(nil, nil, nil, logger)
				id := r.Add(s)
				r.Len()
				r.Remove(id)
			}
		}()
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}
