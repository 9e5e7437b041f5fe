package output

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// RawPort is the raw printing port of Brother network printers.
const RawPort = "9100"

// Probe checks that a tcp:// target accepts connections.
func Probe(ctx context.Context, target string, timeout time.Duration) error {
	host, ok := strings.CutPrefix(target, "tcp://")
	if !ok {
		return fmt.Errorf("probe is only supported for network printers: %s", target)
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, RawPort)
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return fmt.Errorf("printer %s is not reachable: %w", host, err)
	}
	conn.Close()
	return nil
}
