// Package app wires a loaded workspace to the template renderer and the CI
// server and runs one command against them. It is decoupled from the
// command line; cmd/cli only parses arguments into a Config.
package app
