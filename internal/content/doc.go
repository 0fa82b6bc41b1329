// Package content defines the marketing content item carried through
// generation, publication, and comment monitoring.
package content
