package ipv4

// IDGenerator produces the monotonically increasing identification field
// placed in each sent IPv4 header, wrapping modulo 2^16.
type IDGenerator struct {
	next uint16
}

// Next returns the next identification value and advances the generator.
func (g *IDGenerator) Next() uint16 {
	id := g.next
	g.next++
	return id
}
