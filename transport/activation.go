// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package transport

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

// firstActivationFd is the file descriptor number systemd-style socket
// activation starts handing out pre-bound listening sockets at.
const firstActivationFd = 3

// ListenFromEnvironment returns the listening sockets passed to this
// process via the LISTEN_FDS/LISTEN_PID socket-activation contract: if
// LISTEN_PID matches the current process and LISTEN_FDS is a positive
// integer, descriptors firstActivationFd through
// firstActivationFd+LISTEN_FDS-1 are wrapped as net.Listeners in
// order. ok is false if activation was not requested for this process.
//
// Not present in the teacher, which dials and listens on normal
// addresses only; grounded in spec.md's socket-activation contract.
func ListenFromEnvironment() (listeners []net.Listener, ok bool, err error) {
	pidStr := os.Getenv("LISTEN_PID")
	fdsStr := os.Getenv("LISTEN_FDS")
	if pidStr == "" || fdsStr == "" {
		return nil, false, nil
	}

	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return nil, false, fmt.Errorf("transport: parsing LISTEN_PID: %w", err)
	}
	if pid != os.Getpid() {
		return nil, false, nil
	}

	n, err := strconv.Atoi(fdsStr)
	if err != nil {
		return nil, false, fmt.Errorf("transport: parsing LISTEN_FDS: %w", err)
	}
	if n <= 0 {
		return nil, false, nil
	}

	listeners = make([]net.Listener, 0, n)
	for i := 0; i < n; i++ {
		fd := uintptr(firstActivationFd + i)
		f := os.NewFile(fd, fmt.Sprintf("LISTEN_FD_%d", i))
		l, err := net.FileListener(f)
		if err != nil {
			for _, prev := range listeners {
				_ = prev.Close()
			}
			return nil, true, fmt.Errorf("transport: wrapping activation fd %d: %w", fd, err)
		}
		listeners = append(listeners, l)
	}
	return listeners, true, nil
}
