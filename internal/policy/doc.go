// Package policy implements the pure scheduling decisions: daily generation
// quota, fixed generation slots, the publishing time window, and minimum
// spacing between publications. No I/O happens here.
package policy
