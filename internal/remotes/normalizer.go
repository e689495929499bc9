package remotes

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"stackresolve/internal/config"
	"stackresolve/internal/errors"
	"stackresolve/internal/logging"
)

// DefaultSSHTimeout bounds a single "ssh -G" lookup.
const DefaultSSHTimeout = 3000 * time.Millisecond

// SSHConfigRunner returns the effective ssh configuration for host, in the
// format printed by "ssh -G".
type SSHConfigRunner func(ctx context.Context, host string) (string, error)

var hostnameRe = regexp.MustCompile(`(?m)^hostname (\S+)\s*$`)

// Normalizer maps remote URLs to identities, resolving ssh host aliases.
// It is safe for concurrent use.
type Normalizer struct {
	resolveAliases bool
	timeout        time.Duration
	runner         SSHConfigRunner
	logger         *logging.Logger

	mu    sync.Mutex
	hosts map[string]string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithSSHRunner replaces the ssh invocation used for alias lookups.
func WithSSHRunner(r SSHConfigRunner) Option {
	return func(n *Normalizer) {
		n.runner = r
	}
}

// NewNormalizer creates a normalizer from the remotes section of cfg.
func NewNormalizer(cfg *config.Config, logger *logging.Logger, opts ...Option) *Normalizer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	timeout := DefaultSSHTimeout
	if cfg.Remotes.SSHTimeoutMs > 0 {
		timeout = time.Duration(cfg.Remotes.SSHTimeoutMs) * time.Millisecond
	}
	binary := cfg.Remotes.SSHBinary
	if binary == "" {
		binary = "ssh"
	}

	n := &Normalizer{
		resolveAliases: cfg.Remotes.ResolveSSHAliases,
		timeout:        timeout,
		runner:         execSSH(binary),
		logger:         logger,
		hosts:          make(map[string]string),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns the identity of url. ssh-style hosts are passed
// through the ssh configuration so aliases compare equal to real hosts.
func (n *Normalizer) Normalize(ctx context.Context, url string) (Identity, error) {
	r, ok := Parse(url)
	if !ok {
		return Identity{}, errors.New(errors.InvalidArgument, "Unrecognized git remote URL", nil).
			WithDetails(map[string]interface{}{"url": url})
	}
	if r.SSH && n.resolveAliases {
		r.Host = n.resolveHost(ctx, r.Host)
	}
	return r.Identity(), nil
}

// Matches reports whether remote names the same repository as any of
// candidates. Unparsable candidates are ignored.
func (n *Normalizer) Matches(ctx context.Context, remote string, candidates []string) bool {
	want, err := n.Normalize(ctx, remote)
	if err != nil {
		return false
	}
	variants := make(map[string]bool)
	for _, v := range Variants(want) {
		variants[strings.ToLower(v)] = true
	}

	for _, c := range candidates {
		if variants[strings.ToLower(strings.TrimSpace(c))] {
			return true
		}
		id, err := n.Normalize(ctx, c)
		if err != nil {
			continue
		}
		if id == want {
			return true
		}
	}
	return false
}

// resolveHost returns the hostname ssh would connect to for host, falling
// back to host on any failure. Results are cached per normalizer, except
// when the lookup failed because ctx itself was done.
func (n *Normalizer) resolveHost(ctx context.Context, host string) string {
	n.mu.Lock()
	if resolved, ok := n.hosts[host]; ok {
		n.mu.Unlock()
		return resolved
	}
	n.mu.Unlock()

	resolved := host
	lookupCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	out, err := n.runner(lookupCtx, host)
	if err != nil {
		n.logger.Debug("ssh alias lookup failed", map[string]interface{}{
			"host":  host,
			"error": err.Error(),
		})
		if ctx.Err() != nil {
			return host
		}
	} else if m := hostnameRe.FindStringSubmatch(out); m != nil && m[1] != "undefined" {
		resolved = m[1]
	}

	n.mu.Lock()
	n.hosts[host] = resolved
	n.mu.Unlock()
	return resolved
}

// execSSH runs "ssh -T -G host". -T keeps ssh from asking for a terminal.
func execSSH(binary string) SSHConfigRunner {
	return func(ctx context.Context, host string) (string, error) {
		if strings.HasPrefix(host, "-") {
			return "", errors.New(errors.InvalidArgument, "Invalid ssh host", nil)
		}
		cmd := exec.CommandContext(ctx, binary, "-T", "-G", host)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		if err != nil {
			if ctx.Err() != nil {
				return "", errors.New(errors.Timeout, "ssh -G timed out", err)
			}
			return "", errors.New(errors.BackendUnavailable, "ssh -G failed", err).
				WithDetails(map[string]interface{}{"stderr": strings.TrimSpace(stderr.String())})
		}
		return string(out), nil
	}
}
