// Package server exposes the HTTP and WebSocket surface of the word cloud
// service: the topic API, comment submission, snapshot reads, and the viewer
// feed that joins connections to rooms.
package server
