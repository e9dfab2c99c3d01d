package utils

import (
	"fmt"
	"net"
	"net/netip"
)

type MacAddress []byte // purely for the formatting purpose

func (s MacAddress) String() string {
	return net.HardwareAddr([]byte(s)).String()
}

func (s MacAddress) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("\"%s\"", s.String())), nil
}

type IPAddress []byte // purely for the formatting purpose

func (s IPAddress) MarshalJSON() ([]byte, error) {
	ip, _ := netip.AddrFromSlice([]byte(s))
	return []byte(fmt.Sprintf("\"%s\"", ip.String())), nil
}
