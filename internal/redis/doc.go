// Package redis implements the Redis-backed collaborators of the word cloud
// service: the authoritative word store, the topic registry, and the
// broadcast channel used to fan out delta batches.
package redis
