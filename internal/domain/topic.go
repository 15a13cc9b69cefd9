package domain

import "regexp"

// MaxTopicLength is the longest allowed topic name.
const MaxTopicLength = 50

var topicPattern = regexp.MustCompile(`^[a-zA-Z-]+$`)

// ValidateTopic checks a topic name against the naming rules: 1-50 characters,
// letters and hyphens only.
func ValidateTopic(name string) error {
	if len(name) == 0 || len(name) > MaxTopicLength {
		return ErrInvalidTopic
	}
	if !topicPattern.MatchString(name) {
		return ErrInvalidTopic
	}
	return nil
}

// RoomChannel returns the broadcast channel name for a topic. The "room:"
// prefix matches the existing deployment's channel naming.
func RoomChannel(topic string) string {
	return "room:" + topic
}
