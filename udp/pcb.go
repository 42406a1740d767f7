package udp

import "sync"

// pcbState is the lifecycle state of a bind-table slot.
type pcbState uint8

const (
	pcbFree pcbState = iota
	pcbOpen
	pcbClosing
)

// inboundDatagram is one entry in a PCB's receive queue: a datagram that
// arrived for that PCB's local endpoint, not yet consumed by the caller.
type inboundDatagram struct {
	Foreign Endpoint
	Payload []byte
}

type pcb struct {
	state pcbState
	local Endpoint
	queue []inboundDatagram
}

func (p *pcb) canBind(addr [4]byte, port uint16) bool {
	return p.state == pcbOpen && p.local.matches(Endpoint{Addr: addr, Port: port})
}

// Table is a fixed-capacity array of UDP bind slots (protocol control
// blocks), matching the original stack's UDP_PCB_LENGTH-sized table:
// Bind occupies the first free slot; Recv enqueues arriving datagrams
// against whichever bound slot matches per the binding rule.
type Table struct {
	mu   sync.Mutex
	pcbs [PCBTableSize]pcb
}

// NewTable returns an empty bind table ready to use.
func NewTable() *Table { return &Table{} }

// Bind reserves a slot for local, returning its index. It fails with
// errBound if any existing open PCB's local endpoint already matches
// local per the binding rule (two PCBs on the same port must not coexist
// if either has ANY as its address), and with errTableFull if every slot
// is occupied.
func (t *Table) Bind(local Endpoint) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.pcbs {
		p := &t.pcbs[i]
		if p.canBind(local.Addr, local.Port) {
			return -1, errBound
		}
	}
	for i := range t.pcbs {
		p := &t.pcbs[i]
		if p.state == pcbFree {
			*p = pcb{state: pcbOpen, local: local}
			return i, nil
		}
	}
	return -1, errTableFull
}

// Unbind frees slot i, discarding any queued datagrams. Closing a slot is
// modeled as an immediate transition to free rather than going through a
// Closing state first: this stack has no half-close semantics to drain.
func (t *Table) Unbind(i int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.pcbs) {
		return
	}
	t.pcbs[i] = pcb{}
}

// Local returns the local endpoint bound to slot i.
func (t *Table) Local(i int) Endpoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.pcbs) || t.pcbs[i].state != pcbOpen {
		return Endpoint{}
	}
	return t.pcbs[i].local
}

// selectPCB returns the index of the open PCB whose local endpoint
// matches (dstAddr, dstPort), or -1 if none does. Callers must hold t.mu.
func (t *Table) selectPCB(dstAddr [4]byte, dstPort uint16) int {
	for i := range t.pcbs {
		if t.pcbs[i].canBind(dstAddr, dstPort) {
			return i
		}
	}
	return -1
}

// enqueue appends an inbound datagram to the PCB bound to (dstAddr,
// dstPort). It returns errNoPCB if no PCB is bound there, matching the
// original stack's recv, which drops the packet when no socket claims it.
func (t *Table) enqueue(foreign Endpoint, dstAddr [4]byte, dstPort uint16, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.selectPCB(dstAddr, dstPort)
	if i < 0 {
		return errNoPCB
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	t.pcbs[i].queue = append(t.pcbs[i].queue, inboundDatagram{Foreign: foreign, Payload: cp})
	return nil
}

// Receive pops the oldest queued datagram for slot i. ok is false if the
// queue is empty.
func (t *Table) Receive(i int) (foreign Endpoint, payload []byte, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.pcbs) || len(t.pcbs[i].queue) == 0 {
		return Endpoint{}, nil, false
	}
	e := t.pcbs[i].queue[0]
	t.pcbs[i].queue = t.pcbs[i].queue[1:]
	return e.Foreign, e.Payload, true
}
