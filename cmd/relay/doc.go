// Package main runs the chatseal relay.
//
// The relay is an untrusted middleman: it stores public keys, conversation
// membership, sealed conversation keys and ciphertext, and pushes new
// messages to subscribers. See package relayserver for the HTTP API.
//
// Configuration comes from the environment, optionally seeded from a .env
// file in the working directory:
//
//	PORT          listen port (default 8080)
//	DATABASE_URL  postgres connection string; in-memory storage when unset
//	REDIS_URL     redis address for event fan-out; in-process when unset
//	LOG_LEVEL     logrus level (default info)
//
// With the in-memory backend all state is lost on exit.
package main
