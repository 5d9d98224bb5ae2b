// Package dashboard renders a markdown status report of every registered and
// embedded repository in a working tree, grouped by category.
package dashboard
