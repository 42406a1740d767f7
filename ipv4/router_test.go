package ipv4

import "testing"

func TestRouterLongestMatch(t *testing.T) {
	var r Router
	ifaceA := &Interface{Unicast: [4]byte{192, 0, 0, 1}, Netmask: [4]byte{255, 0, 0, 0}}
	ifaceB := &Interface{Unicast: [4]byte{192, 0, 1, 1}, Netmask: [4]byte{255, 255, 0, 0}}

	r.Register([4]byte{192, 0, 0, 0}, ifaceA)
	r.Register([4]byte{192, 0, 1, 0}, ifaceB)

	route, ok := r.Lookup([4]byte{192, 0, 1, 2})
	if !ok || route.Interface != ifaceB {
		t.Fatalf("expected route B for 192.0.1.2, got %+v ok=%v", route, ok)
	}

	route, ok = r.Lookup([4]byte{192, 1, 0, 2})
	if !ok || route.Interface != ifaceA {
		t.Fatalf("expected route A for 192.1.0.2, got %+v ok=%v", route, ok)
	}
}

func TestRouterDefaultOnlyWhenNoMatch(t *testing.T) {
	var r Router
	ifaceA := &Interface{Unicast: [4]byte{192, 0, 2, 1}, Netmask: [4]byte{255, 255, 255, 0}}
	gw := &Interface{}

	r.Register([4]byte{192, 0, 2, 0}, ifaceA)
	r.RegisterDefault(gw, [4]byte{192, 0, 2, 254})

	route, ok := r.Lookup([4]byte{192, 0, 2, 5})
	if !ok || route.Interface != ifaceA {
		t.Fatalf("expected specific route to win over default, got %+v", route)
	}

	route, ok = r.Lookup([4]byte{8, 8, 8, 8})
	if !ok || route.Interface != gw || !route.HasNextHop() {
		t.Fatalf("expected default route for unmatched dest, got %+v ok=%v", route, ok)
	}
}
