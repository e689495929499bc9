// Package remotes turns git remote URLs into a comparable identity so a
// stack trace's repository can be matched against local clones.
package remotes

import (
	"regexp"
	"strings"
)

// Identity is a remote reduced to host and repository path, lowercased.
type Identity struct {
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

// String renders the identity as domain/path.
func (id Identity) String() string {
	if id.Domain == "" {
		return id.Path
	}
	return id.Domain + "/" + id.Path
}

// IsZero reports whether the identity carries no host and no path.
func (id Identity) IsZero() bool {
	return id.Domain == "" && id.Path == ""
}

// Remote is a parsed URL before alias resolution.
type Remote struct {
	Scheme string
	Host   string
	Path   string
	// SSH is set for transports that go through ssh and may name an alias.
	SSH bool
}

// Identity returns the lowercased identity of r.
func (r Remote) Identity() Identity {
	return Identity{Domain: strings.ToLower(r.Host), Path: strings.ToLower(r.Path)}
}

var (
	gitProtoRe = regexp.MustCompile(`^git://([^/:]+)(?::[^/]*)?/(.*)$`)
	httpRe     = regexp.MustCompile(`^(https?)://(?:[^@/]*@)?([^/:]+)(?::[^/]*)?/(.*)$`)
	sshURLRe   = regexp.MustCompile(`^ssh://(?:[^@/]*@)?([^/:~]+)(?::\d*)?/?(.*)$`)
	gitAtRe    = regexp.MustCompile(`^git@([^:]+):(.*)$`)
	scpRe      = regexp.MustCompile(`^[^@/]+@([^:/]+):(.*)$`)

	gitSuffixRe = regexp.MustCompile(`\.git/?$`)
)

// Parse splits a remote URL into its parts. Recognized forms are git://,
// http(s)://, ssh:// (including ~user paths), git@host:path and scp-like
// user@host:path. A bare "alias:path" is read as git@alias:path.
func Parse(url string) (Remote, bool) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Remote{}, false
	}

	if r, ok := parseForms(url); ok {
		return r, true
	}
	if strings.Contains(url, ":") && !strings.Contains(url, "@") && !strings.Contains(url, "://") {
		return parseForms("git@" + url)
	}
	return Remote{}, false
}

func parseForms(url string) (Remote, bool) {
	if m := gitProtoRe.FindStringSubmatch(url); m != nil {
		return Remote{Scheme: "git://", Host: m[1], Path: cleanRepoPath(m[2])}, true
	}
	if m := httpRe.FindStringSubmatch(url); m != nil {
		return Remote{Scheme: m[1] + "://", Host: m[2], Path: cleanRepoPath(m[3])}, true
	}
	if m := sshURLRe.FindStringSubmatch(url); m != nil {
		return Remote{Scheme: "ssh://", Host: m[1], Path: cleanRepoPath(m[2]), SSH: true}, true
	}
	if m := gitAtRe.FindStringSubmatch(url); m != nil {
		return Remote{Host: m[1], Path: cleanRepoPath(m[2]), SSH: true}, true
	}
	if m := scpRe.FindStringSubmatch(url); m != nil {
		return Remote{Host: m[1], Path: cleanRepoPath(m[2]), SSH: true}, true
	}
	return Remote{}, false
}

// cleanRepoPath drops leading slashes and a trailing .git, as seen in
// remotes like git@github.com:/acme/shop.git.
func cleanRepoPath(p string) string {
	p = strings.TrimLeft(p, "/")
	p = gitSuffixRe.ReplaceAllString(p, "")
	return strings.TrimRight(p, "/")
}

// Variants returns the https and ssh spellings under which a repository
// with this identity may be registered.
func Variants(id Identity) []string {
	if id.IsZero() {
		return nil
	}
	return []string{
		"https://" + id.Domain + "/" + id.Path + ".git",
		"https://" + id.Domain + "/" + id.Path,
		"git@" + id.Domain + ":" + id.Path + ".git",
	}
}

// RepoName returns the last path segment of a remote without .git, which
// is how a repository is named to the user.
func RepoName(url string) string {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if i := strings.LastIndexAny(url, "/:"); i >= 0 {
		url = url[i+1:]
	}
	return strings.TrimSuffix(url, ".git")
}
