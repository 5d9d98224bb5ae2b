package gitrepo

import (
	"fmt"
	"strings"
)

const (
	sshProtocolPrefixConstant           = "ssh://"
	sshUserDelimiterConstant            = "@"
	sshPathDelimiterConstant            = ":"
	httpsProtocolPrefixConstant         = "https://"
	httpProtocolPrefixConstant          = "http://"
	queryDelimiterConstant              = "?"
	fragmentDelimiterConstant           = "#"
	gitUserPrefixConstant               = "git@"
	pathSeparatorConstant               = "/"
	gitSuffixConstant                   = ".git"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	invalidRemoteURLMessageConstant     = "invalid remote url"
)

// RemoteURL is the host, owner, and repository a remote points at.
type RemoteURL struct {
	Host       string
	Owner      string
	Repository string
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// ParseRemoteURL accepts https and http links (browser suffixes included),
// scp-style git@host:owner/repo remotes, and ssh:// remotes.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	}

	switch {
	case strings.HasPrefix(trimmedRemote, sshProtocolPrefixConstant):
		return parseSSHRemote(strings.TrimPrefix(trimmedRemote, sshProtocolPrefixConstant))
	case strings.HasPrefix(trimmedRemote, gitUserPrefixConstant):
		return parseSSHRemote(trimmedRemote)
	case strings.HasPrefix(trimmedRemote, httpsProtocolPrefixConstant):
		return parseHTTPSRemote(strings.TrimPrefix(trimmedRemote, httpsProtocolPrefixConstant))
	case strings.HasPrefix(trimmedRemote, httpProtocolPrefixConstant):
		return parseHTTPSRemote(strings.TrimPrefix(trimmedRemote, httpProtocolPrefixConstant))
	}
	return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
}

// CloneURL renders the canonical https clone address.
func (remote RemoteURL) CloneURL() string {
	return httpsProtocolPrefixConstant + strings.ToLower(remote.Host) + pathSeparatorConstant + remote.Owner + pathSeparatorConstant + remote.Repository + gitSuffixConstant
}

// parseSSHRemote handles user@host:owner/repo and, after the ssh:// prefix, user@host/owner/repo.
func parseSSHRemote(remote string) (RemoteURL, error) {
	_, hostAndPath, found := strings.Cut(remote, sshUserDelimiterConstant)
	if !found {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	host, path, found := strings.Cut(hostAndPath, sshPathDelimiterConstant)
	if !found {
		host, path, found = strings.Cut(hostAndPath, pathSeparatorConstant)
	}
	if !found || len(host) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	segments := strings.Split(strings.TrimPrefix(path, pathSeparatorConstant), pathSeparatorConstant)
	if len(segments) != 2 || len(segments[0]) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	return newRemoteURL(host, segments[0], segments[1])
}

// parseHTTPSRemote keeps host, owner, and repository; browser suffixes such as /tree/main are dropped.
func parseHTTPSRemote(remote string) (RemoteURL, error) {
	withoutQuery, _, _ := strings.Cut(remote, queryDelimiterConstant)
	withoutFragment, _, _ := strings.Cut(withoutQuery, fragmentDelimiterConstant)
	pathComponents := strings.Split(strings.TrimSuffix(withoutFragment, pathSeparatorConstant), pathSeparatorConstant)
	if len(pathComponents) < 3 || len(pathComponents[0]) == 0 || len(pathComponents[1]) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	return newRemoteURL(pathComponents[0], pathComponents[1], pathComponents[2])
}

func newRemoteURL(host string, owner string, repository string) (RemoteURL, error) {
	trimmedRepository := strings.TrimSuffix(repository, gitSuffixConstant)
	if len(trimmedRepository) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: repository, Message: invalidRemoteURLMessageConstant}
	}
	return RemoteURL{Host: strings.ToLower(host), Owner: owner, Repository: trimmedRepository}, nil
}
