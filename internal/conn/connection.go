package conn

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/Umpriel/atlas/internal/atlaserr"
	"github.com/Umpriel/atlas/internal/log"
	"github.com/Umpriel/atlas/internal/types"
)

// Connection is either a live SSH session to a remote machine, or an inert
// placeholder for the Local provider, which runs commands as subprocesses
// on the machine Atlas itself is running on.
type Connection struct {
	Provider types.ComputeProvider
	SSH      *ssh.Client
}

// Local returns the no-op connection used for the Local provider. It never
// touches the network.
func Local() *Connection {
	return &Connection{Provider: types.ProviderLocal}
}

// Connect dials an SSH connection to ip as user, authenticating via the
// local SSH agent (SSH_AUTH_SOCK). The spec intentionally performs no host
// key verification: these are ephemeral provider-spun machines reached
// over a trusted network, the same posture the original's NoCheck
// verification method took.
func Connect(ctx context.Context, provider types.ComputeProvider, ip, user string) (*Connection, error) {
	if provider == types.ProviderLocal {
		log.Info(fmt.Sprintf("noop connected to %s machine", provider))
		return Local(), nil
	}

	log.Info(fmt.Sprintf("connecting to %s machine on %s", provider, ip))

	sock, err := net.Dial("unix", os.Getenv("SSH_AUTH_SOCK"))
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.ConnectionFailure, "dial ssh agent", err)
	}
	defer sock.Close()
	agentClient := agent.NewClient(sock)

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeysCallback(agentClient.Signers)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // ephemeral provider machines, trusted network
	}

	dialer := net.Dialer{}
	raw, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip, "22"))
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.ConnectionFailure, "dial "+ip, err)
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(raw, net.JoinHostPort(ip, "22"), config)
	if err != nil {
		raw.Close()
		return nil, atlaserr.Wrap(atlaserr.ConnectionFailure, "ssh handshake with "+ip, err)
	}

	return &Connection{Provider: provider, SSH: ssh.NewClient(clientConn, chans, reqs)}, nil
}

// Close releases the underlying SSH connection, if any.
func (c *Connection) Close() error {
	if c.SSH == nil {
		return nil
	}
	return c.SSH.Close()
}

// Command runs cmd on the machine this Connection points at and returns its
// ANSI-stripped stdout (stderr is logged, not returned). A non-zero exit
// status is reported as an ExternalCommandFailure carrying the
// reconstructed command line and both captured streams.
func (c *Connection) Command(ctx context.Context, cmd Command) (string, error) {
	log.Logger.Debug().
		Str("provider", string(c.Provider)).
		Str("command", cmd.String()).
		Msg("running command")

	if c.Provider == types.ProviderLocal {
		return c.commandLocal(ctx, cmd)
	}
	return c.commandRemote(ctx, cmd)
}

func (c *Connection) commandLocal(ctx context.Context, cmd Command) (string, error) {
	execCmd := exec.CommandContext(ctx, cmd.Executable, cmd.Args...)
	if cmd.CurrentDir != "" {
		execCmd.Dir = cmd.CurrentDir
	}
	env := []string{}
	for _, e := range cmd.Env {
		env = append(env, e.Key+"="+e.Value)
	}
	execCmd.Env = env

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	err := execCmd.Run()
	return c.handleOutput(cmd.String(), stdout.String(), stderr.String(), err == nil, err)
}

func (c *Connection) commandRemote(ctx context.Context, cmd Command) (string, error) {
	if c.SSH == nil {
		return "", atlaserr.New(atlaserr.ConnectionFailure, "no SSH connection on Connection, this should be impossible")
	}

	session, err := c.SSH.NewSession()
	if err != nil {
		return "", atlaserr.Wrap(atlaserr.ConnectionFailure, "open ssh session", err)
	}
	defer session.Close()

	env := make([]string, 0, len(cmd.Env))
	for _, e := range cmd.Env {
		env = append(env, e.Key+"="+e.Value)
	}

	currentDir := ""
	if cmd.CurrentDir != "" {
		currentDir = "/" + cmd.CurrentDir
	}

	commandString := fmt.Sprintf(
		"cd ~/viewview%s && %s %s %s",
		currentDir,
		strings.Join(env, " "),
		cmd.Executable,
		strings.Join(cmd.Args, " "),
	)

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	runErr := session.Run(commandString)
	return c.handleOutput(commandString, stdout.String(), stderr.String(), runErr == nil, runErr)
}

func (c *Connection) handleOutput(command, rawStdout, rawStderr string, ok bool, cause error) (string, error) {
	stdout := stripANSI(rawStdout)
	stderr := stripANSI(rawStderr)

	for _, line := range strings.Split(stdout, "\n") {
		if line != "" {
			log.Logger.Trace().Msg(line)
		}
	}
	for _, line := range strings.Split(stderr, "\n") {
		if line != "" {
			log.Logger.Warn().Msg(line)
		}
	}

	if !ok {
		return stdout, atlaserr.Wrap(atlaserr.ExternalCommandFailure,
			fmt.Sprintf("%s\nSTDOUT:\n%s\nSTDERR:\n%s", command, stdout, stderr), cause)
	}
	return stdout, nil
}

// SyncFileToS3 uploads local to the S3 destination URI by shelling out to
// ./ctl.sh, never encoding provider-specific storage logic here.
func (c *Connection) SyncFileToS3(ctx context.Context, source, destination string) error {
	log.Info(fmt.Sprintf("syncing file %s to %s on %s", source, destination, c.Provider))
	_, err := c.Command(ctx, Command{
		Executable: "./ctl.sh",
		Args:       []string{"s3", "put", source, destination},
	})
	return err
}

// SyncFileFromS3 downloads the S3 source URI to the local path by shelling
// out to ./ctl.sh.
func (c *Connection) SyncFileFromS3(ctx context.Context, from, to string) error {
	log.Info(fmt.Sprintf("syncing file %s from %s on %s", to, from, c.Provider))
	_, err := c.Command(ctx, Command{
		Executable: "./ctl.sh",
		Args:       []string{"s3", "get", "--force", from, to},
	})
	return err
}
