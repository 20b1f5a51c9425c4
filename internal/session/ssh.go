package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/edvin/fleetctl/internal/model"
)

// NativeSSH opens an interactive shell with the built-in SSH client.
type NativeSSH struct {
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
	Port        int
	DialTimeout time.Duration
}

func (n *NativeSSH) Launch(ctx context.Context, access model.InstanceAccess) error {
	signer, err := ssh.ParsePrivateKey([]byte(access.Secret))
	if err != nil {
		return fmt.Errorf("parse instance key: %w", err)
	}

	port := n.Port
	if port == 0 {
		port = model.PortSSH
	}
	timeout := n.DialTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	addr := net.JoinHostPort(access.IPAddress, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: timeout}
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	// Instance host keys change with every fleet and are not published.
	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, &ssh.ClientConfig{
		User:            access.UserName,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	})
	if err != nil {
		tcpConn.Close()
		return fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("ssh session: %w", err)
	}
	defer session.Close()

	session.Stdin = n.Stdin
	session.Stdout = n.Stdout
	session.Stderr = n.Stderr

	width, height := 80, 24
	if f, ok := n.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		if state, err := term.MakeRaw(fd); err == nil {
			defer term.Restore(fd, state)
		}
		if w, h, err := term.GetSize(fd); err == nil {
			width, height = w, h
		}
	}

	termType := os.Getenv("TERM")
	if termType == "" {
		termType = "xterm-256color"
	}
	if err := session.RequestPty(termType, height, width, ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}); err != nil {
		return fmt.Errorf("pty request: %w", err)
	}
	if err := session.Shell(); err != nil {
		return fmt.Errorf("start shell: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		client.Close()
		return ctx.Err()
	case err := <-done:
		var exitErr *ssh.ExitError
		var missing *ssh.ExitMissingError
		if err == nil || errors.As(err, &exitErr) || errors.As(err, &missing) {
			return nil
		}
		return fmt.Errorf("shell session: %w", err)
	}
}

// ExternalSSH runs an ssh command with the instance key written to KeyDir.
type ExternalSSH struct {
	Command string
	KeyDir  string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

func (e *ExternalSSH) Launch(ctx context.Context, access model.InstanceAccess) error {
	keyPath, err := WriteKey(e.KeyDir, access)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, e.Command, SSHArgs(keyPath, access)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = e.Stdin, e.Stdout, e.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", e.Command, err)
	}
	return nil
}

// SSHArgs builds the arguments for an OpenSSH-compatible client.
func SSHArgs(keyPath string, access model.InstanceAccess) []string {
	return []string{
		"-i", keyPath,
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=" + os.DevNull,
		access.UserName + "@" + access.IPAddress,
	}
}
