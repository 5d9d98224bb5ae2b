// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with zap logging and lifecycle
// observers, OSCommandRunner runs processes through os/exec, and the typed
// CommandFailedError and CommandExecutionError values let callers turn a
// failed git invocation into an absent or sentinel result.
package execshell
