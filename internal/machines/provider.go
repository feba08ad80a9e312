package machines

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/Umpriel/atlas/internal/atlaserr"
	"github.com/Umpriel/atlas/internal/conn"
	"github.com/Umpriel/atlas/internal/log"
	"github.com/Umpriel/atlas/internal/types"
)

// Provider provisions a fresh machine and returns the SSH user and IP to
// reach it at. Create has already waited for the machine to boot and run
// its cloud-init by the time it returns.
type Provider interface {
	ComputeProvider() types.ComputeProvider
	Create(ctx context.Context, sshKeyID string) (user string, ip netip.Addr, err error)
}

// NewProvider returns the Provider implementation for p.
func NewProvider(p types.ComputeProvider) (Provider, error) {
	switch p {
	case types.ProviderLocal:
		return LocalProvider{}, nil
	case types.ProviderDigitalOcean:
		return DigitalOceanProvider{}, nil
	case types.ProviderVultr:
		return VultrProvider{}, nil
	case types.ProviderGoogleCloud:
		return GoogleCloudProvider{}, nil
	default:
		return nil, atlaserr.New(atlaserr.DataFormatFailure, "unknown compute provider: "+string(p))
	}
}

// LocalProvider treats the machine Atlas itself runs on as the worker
// machine. It never provisions anything.
type LocalProvider struct{}

func (LocalProvider) ComputeProvider() types.ComputeProvider { return types.ProviderLocal }

func (LocalProvider) Create(ctx context.Context, sshKeyID string) (string, netip.Addr, error) {
	return "atlas_local", netip.MustParseAddr("127.0.0.1"), nil
}

// waitForBoot polls `ssh -o StrictHostKeyChecking=accept-new user@ip true`
// every second for up to 60 attempts, then sleeps an extra 30s once the
// machine first answers — the original gives cloud-init extra time to
// finish even after sshd itself comes up.
func waitForBoot(ctx context.Context, local conn.Connection, user, ip string) error {
	target := fmt.Sprintf("%s@%s", user, ip)
	for attempt := 0; attempt < 60; attempt++ {
		_, err := local.Command(ctx, conn.Command{
			Executable: "ssh",
			Args:       []string{"-o", "StrictHostKeyChecking=accept-new", target, "true"},
		})
		if err == nil {
			log.Info(fmt.Sprintf("%s is up, waiting 30s for cloud-init", ip))
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return atlaserr.New(atlaserr.ConnectionFailure, fmt.Sprintf("machine %s never came up after 60 attempts", ip))
}

func runLocal(ctx context.Context, exe string, args ...string) (string, error) {
	return conn.Local().Command(ctx, conn.Command{Executable: exe, Args: args})
}

// DigitalOceanProvider creates a GPU droplet via doctl.
type DigitalOceanProvider struct{}

func (DigitalOceanProvider) ComputeProvider() types.ComputeProvider { return types.ProviderDigitalOcean }

func (p DigitalOceanProvider) Create(ctx context.Context, sshKeyID string) (string, netip.Addr, error) {
	out, err := runLocal(ctx, "doctl", "compute", "droplet", "create",
		"atlas-worker",
		"--image", "gpu-h100x1-base",
		"--size", "gpu-h100x1-80gb",
		"--region", "nyc2",
		"--ssh-keys", sshKeyID,
		"--format", "PublicIPv4",
		"--no-header",
		"--wait",
	)
	if err != nil {
		return "", netip.Addr{}, atlaserr.Wrap(atlaserr.ExternalCommandFailure, "create droplet", err)
	}
	ip, err := netip.ParseAddr(strings.TrimSpace(out))
	if err != nil {
		return "", netip.Addr{}, atlaserr.Wrap(atlaserr.DataFormatFailure, "parse droplet IP", err)
	}

	if err := waitForBoot(ctx, *conn.Local(), "root", ip.String()); err != nil {
		return "", netip.Addr{}, err
	}
	if _, err := runLocal(ctx, "./ctl.sh", "cloud_init_ubuntu22", fmt.Sprintf("root@%s", ip)); err != nil {
		return "", netip.Addr{}, atlaserr.Wrap(atlaserr.ExternalCommandFailure, "init droplet", err)
	}
	return "root", ip, nil
}

// VultrProvider creates a bare-metal GPU instance via vultr-cli.
type VultrProvider struct{}

func (VultrProvider) ComputeProvider() types.ComputeProvider { return types.ProviderVultr }

func (p VultrProvider) Create(ctx context.Context, sshKeyID string) (string, netip.Addr, error) {
	out, err := runLocal(ctx, "vultr-cli", "bare-metal", "create",
		"--region", "atl",
		"--plan", "vbm-72c-480gb-gh200-gpu",
		"--os", "1743",
		"--ssh", sshKeyID,
		"--label", "viewview-worker",
		"--notify", "no",
	)
	if err != nil {
		return "", netip.Addr{}, atlaserr.Wrap(atlaserr.ExternalCommandFailure, "create bare-metal instance", err)
	}
	ip, err := parseIPFromTabular(out)
	if err != nil {
		return "", netip.Addr{}, err
	}

	if err := waitForBoot(ctx, *conn.Local(), "root", ip.String()); err != nil {
		return "", netip.Addr{}, err
	}
	if _, err := runLocal(ctx, "./ctl.sh", "cloud_init_ubuntu22", fmt.Sprintf("root@%s", ip)); err != nil {
		return "", netip.Addr{}, atlaserr.Wrap(atlaserr.ExternalCommandFailure, "init vultr machine", err)
	}
	return "root", ip, nil
}

// GoogleCloudProvider creates a GCE instance via the module's ctl.sh
// wrapper (there is no direct Google Cloud SDK dependency in this module's
// dependency surface, matching the original's own shell-out approach for
// this provider).
type GoogleCloudProvider struct{}

func (GoogleCloudProvider) ComputeProvider() types.ComputeProvider { return types.ProviderGoogleCloud }

func (p GoogleCloudProvider) Create(ctx context.Context, sshKeyID string) (string, netip.Addr, error) {
	machineName := fmt.Sprintf("atlas-%d", time.Now().Unix())
	out, err := runLocal(ctx, "./ctl.sh", "spin_google_cloud", machineName, sshKeyID)
	if err != nil {
		return "", netip.Addr{}, atlaserr.Wrap(atlaserr.ExternalCommandFailure, "spin up google cloud machine", err)
	}
	ip, err := netip.ParseAddr(strings.TrimSpace(out))
	if err != nil {
		return "", netip.Addr{}, atlaserr.Wrap(atlaserr.DataFormatFailure, "parse google cloud machine IP", err)
	}

	// A prior machine may have reused this IP; stale known_hosts entries
	// make the first SSH handshake fail with a host-key mismatch instead
	// of the usual "connection refused" while booting.
	if _, err := runLocal(ctx, "ssh-keygen", "-R", ip.String()); err != nil {
		log.Warn("failed to clear known_hosts entry for " + ip.String() + ": " + err.Error())
	}

	if err := waitForBoot(ctx, *conn.Local(), "atlas", ip.String()); err != nil {
		return "", netip.Addr{}, err
	}
	if _, err := runLocal(ctx, "./ctl.sh", "cloud_init_ubuntu22", fmt.Sprintf("atlas@%s", ip)); err != nil {
		return "", netip.Addr{}, atlaserr.Wrap(atlaserr.ExternalCommandFailure, "init google cloud machine", err)
	}
	return "atlas", ip, nil
}

func parseIPFromTabular(out string) (netip.Addr, error) {
	fields := strings.Fields(out)
	for _, f := range fields {
		if ip, err := netip.ParseAddr(f); err == nil {
			return ip, nil
		}
	}
	return netip.Addr{}, atlaserr.New(atlaserr.DataFormatFailure, "no IP address found in provider output")
}
