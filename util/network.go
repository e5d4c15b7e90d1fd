package util

import (
	"fmt"
	"net"
	"strconv"
)

// ResolveAddr joins host and port into a dialable "host:port" address.
// With numericOnly set the host must already be an IP literal; name
// resolution is refused.
func ResolveAddr(host string, port int, numericOnly bool) (string, error) {
	if numericOnly && net.ParseIP(host) == nil {
		return "", fmt.Errorf("cannot parse %q as an IP address (DNS disabled with -n)", host)
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// FindFreePort asks the kernel for an unused TCP port on 127.0.0.1.
// Test helper only; the port can be taken again between Close and the
// caller's own Listen.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
