package udp

import "testing"

func TestBindCollisionWithAny(t *testing.T) {
	table := NewTable()
	if _, err := table.Bind(Endpoint{Addr: Any, Port: 53}); err != nil {
		t.Fatal(err)
	}
	_, err := table.Bind(Endpoint{Addr: [4]byte{10, 0, 0, 1}, Port: 53})
	if err != errBound {
		t.Fatalf("expected errBound binding a specific address after ANY on the same port, got %v", err)
	}
}

func TestBindDistinctAddressesSucceed(t *testing.T) {
	table := NewTable()
	a1 := [4]byte{10, 0, 0, 1}
	a2 := [4]byte{10, 0, 0, 2}
	if _, err := table.Bind(Endpoint{Addr: a1, Port: 53}); err != nil {
		t.Fatal(err)
	}
	if _, err := table.Bind(Endpoint{Addr: a2, Port: 53}); err != nil {
		t.Fatalf("expected distinct non-ANY addresses on the same port to coexist, got %v", err)
	}
}

func TestBindTableFull(t *testing.T) {
	table := NewTable()
	for i := 0; i < PCBTableSize; i++ {
		if _, err := table.Bind(Endpoint{Addr: [4]byte{10, 0, 0, byte(i)}, Port: 1}); err != nil {
			t.Fatalf("bind %d: %v", i, err)
		}
	}
	if _, err := table.Bind(Endpoint{Addr: [4]byte{10, 0, 0, 99}, Port: 1}); err != errTableFull {
		t.Fatalf("expected errTableFull, got %v", err)
	}
}

func TestEnqueueAndReceiveFIFO(t *testing.T) {
	table := NewTable()
	i, err := table.Bind(Endpoint{Addr: Any, Port: 9000})
	if err != nil {
		t.Fatal(err)
	}
	foreignA := Endpoint{Addr: [4]byte{1, 1, 1, 1}, Port: 111}
	foreignB := Endpoint{Addr: [4]byte{2, 2, 2, 2}, Port: 222}
	if err := table.enqueue(foreignA, Any, 9000, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := table.enqueue(foreignB, Any, 9000, []byte("b")); err != nil {
		t.Fatal(err)
	}

	f, data, ok := table.Receive(i)
	if !ok || f != foreignA || string(data) != "a" {
		t.Fatalf("expected foreignA/a first, got %+v %q ok=%v", f, data, ok)
	}
	f, data, ok = table.Receive(i)
	if !ok || f != foreignB || string(data) != "b" {
		t.Fatalf("expected foreignB/b second, got %+v %q ok=%v", f, data, ok)
	}
	if _, _, ok := table.Receive(i); ok {
		t.Fatal("expected queue to be empty after draining both entries")
	}
}

func TestEnqueueNoPCBFails(t *testing.T) {
	table := NewTable()
	err := table.enqueue(Endpoint{Port: 1}, [4]byte{10, 0, 0, 1}, 9999, []byte("x"))
	if err != errNoPCB {
		t.Fatalf("expected errNoPCB, got %v", err)
	}
}
