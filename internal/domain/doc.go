// Package domain contains the core types and interfaces of the word cloud
// service: topics, word-count deltas, and the boundaries to the Redis-backed
// store and broadcast channel.
package domain
