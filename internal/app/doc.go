// Package app wires chatseal's dependencies for the CLI.
//
// Config is read from config.yaml in the home directory. NewWire builds the
// local stores and the relay client from it, and Login opens a Session: the
// scope in which one user's identity key is held and conversations are
// read and written.
package app
