// Package intake turns a markdown checklist of GitHub links into submodules,
// placing each one under the directory mapped from its section heading.
package intake
