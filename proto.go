package netstack

// IPProto identifies the payload protocol carried by an IPv4 packet, as
// placed in the IPv4 header's Protocol field.
type IPProto uint8

const (
	IPProtoICMP IPProto = 1  // ICMP
	IPProtoUDP  IPProto = 17 // UDP
)

func (p IPProto) String() string {
	switch p {
	case IPProtoICMP:
		return "ICMP"
	case IPProtoUDP:
		return "UDP"
	default:
		return "IPProto(unknown)"
	}
}
