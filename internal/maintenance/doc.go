// Package maintenance runs the background consistency loop for the
// topic index: a startup check plus a periodic re-check, rebuilding the
// index from the cards table whenever the two drift apart.
package maintenance
