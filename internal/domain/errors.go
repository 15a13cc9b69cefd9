package domain

import "errors"

var (
	ErrInvalidTopic     = errors.New("invalid topic name")
	ErrTopicNotFound    = errors.New("topic not found")
	ErrConnectionClosed = errors.New("connection already closed")
	ErrRoomFull         = errors.New("room is full")
)
