// Command beacon is the CLI companion to beacond. It talks to the daemon
// over the Unix control socket for status, on-demand generation, store sync,
// and record listings, and ships configuration utilities that work offline.
package main
