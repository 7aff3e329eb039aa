// Command reindex is an operator tool for the card archive database:
// it checks topic index consistency, rebuilds the index, and compacts
// the database file without going through the HTTP API.
package main
