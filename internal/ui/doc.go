// Package ui renders git command lifecycle events for people watching the console.
package ui
