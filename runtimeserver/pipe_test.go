package runtimeserver_test

import (
	"net"
	"testing"
)

func newPipeConns(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	return a, b
}
