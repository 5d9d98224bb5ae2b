// Package gitrepo wraps the git invocations subkeep relies on.
//
// RepositoryManager turns git output into typed values and treats non-zero
// exits of lookups (remote URL, short revision) as absent results rather
// than errors. ParseRemoteURL reduces https, ssh, and scp-style remotes to
// host, owner, and repository; CloneURL renders the canonical https form.
package gitrepo
