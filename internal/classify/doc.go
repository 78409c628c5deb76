// Package classify computes the three-way accuracy classification of a
// compared provider's duration against the reference provider's.
package classify
