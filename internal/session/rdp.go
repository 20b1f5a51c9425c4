package session

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/edvin/fleetctl/internal/model"
)

// RDP launches a remote desktop client.
type RDP struct {
	Command string
}

func (r *RDP) Launch(ctx context.Context, access model.InstanceAccess) error {
	args, stdin := RDPArgs(r.Command, access)
	cmd := exec.CommandContext(ctx, r.Command, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", r.Command, err)
	}
	return cmd.Wait()
}

// RDPArgs builds client arguments and the text to feed on stdin. The secret
// goes through stdin whenever the client can read it from there, so it does
// not show up in the process list.
func RDPArgs(command string, access model.InstanceAccess) (args []string, stdin string) {
	name := strings.ToLower(strings.TrimSuffix(filepath.Base(command), filepath.Ext(command)))
	freerdp := []string{
		"/v:" + access.IPAddress,
		"/u:" + access.UserName,
		"/p:" + access.Secret,
		"/cert:ignore",
	}
	switch {
	case name == "mstsc":
		// mstsc cannot take credentials at all; only the host is passed.
		return []string{"/v:" + access.IPAddress}, ""
	case name == "rdesktop":
		return []string{"-u", access.UserName, "-p", "-", access.IPAddress}, access.Secret + "\n"
	case strings.HasSuffix(name, "freerdp3"):
		// FreeRDP 3 reads its whole command line, one argument per line.
		return []string{"/args-from:stdin"}, strings.Join(freerdp, "\n") + "\n"
	default:
		// FreeRDP 2 has no stdin option for the password, so /p: stays visible
		// to other local users while the client runs. Use xfreerdp3 or rdesktop
		// on shared hosts.
		return freerdp, ""
	}
}
