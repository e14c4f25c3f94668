package server

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

const sdListenFdsStart = 3

// listen opens the configured address. A socket handed over by systemd wins
// over the address; `unix:/path` binds a unix socket, anything else is TCP.
func (s *Server) listen(address string) (net.Listener, error) {
	if listener, ok, err := systemdListener(); err != nil {
		return nil, err
	} else if ok {
		s.logger.Info("using systemd socket")
		return listener, nil
	}
	if path, ok := strings.CutPrefix(address, "unix:"); ok {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
		listener, err := net.Listen("unix", path)
		if err != nil {
			return nil, err
		}
		if err := os.Chmod(path, 0o660); err != nil {
			_ = listener.Close()
			return nil, fmt.Errorf("chmod socket: %w", err)
		}
		return listener, nil
	}
	return net.Listen("tcp", address)
}

// systemdListener takes over the first socket passed with LISTEN_FDS when
// LISTEN_PID names this process.
func systemdListener() (net.Listener, bool, error) {
	pid, err := strconv.Atoi(strings.TrimSpace(os.Getenv("LISTEN_PID")))
	if err != nil || pid != os.Getpid() {
		return nil, false, nil
	}
	fdsEnv := strings.TrimSpace(os.Getenv("LISTEN_FDS"))
	if fdsEnv == "" {
		return nil, false, nil
	}
	fds, err := strconv.Atoi(fdsEnv)
	if err != nil {
		return nil, false, fmt.Errorf("systemd listener: invalid LISTEN_FDS: %w", err)
	}
	if fds <= 0 {
		return nil, false, nil
	}

	file := os.NewFile(uintptr(sdListenFdsStart), "systemd-socket")
	if file == nil {
		return nil, false, fmt.Errorf("systemd listener: fd %d unavailable", sdListenFdsStart)
	}
	listener, err := net.FileListener(file)
	_ = file.Close()
	if err != nil {
		return nil, false, fmt.Errorf("systemd listener: %w", err)
	}
	for _, key := range []string{"LISTEN_PID", "LISTEN_FDS", "LISTEN_FDNAMES"} {
		_ = os.Unsetenv(key)
	}
	return listener, true, nil
}
