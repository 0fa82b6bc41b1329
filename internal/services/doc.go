// Package services holds the cross-cutting error taxonomy and context
// helpers shared by the background loops and external clients.
package services
