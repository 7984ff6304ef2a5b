package debate

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxTopicLen caps the parsed topic length; anything longer is rejected as an
// invalid start message.
const MaxTopicLen = 100

var (
	topicRx   = regexp.MustCompile(`(?i)\btopic\s*:\s*`)
	sideRx    = regexp.MustCompile(`(?i)\bside\s*:\s*(\w+)`)
	markersRx = regexp.MustCompile(`(?i)\b(topic|side)\s*:`)
)

// ParseTopicSide extracts the Topic: and Side: markers from a start-of-
// conversation message. Both markers are required; the side must be PRO or
// CON and the topic non-empty and at most MaxTopicLen characters. The topic
// runs from its marker to the Side: marker (or end of message).
func ParseTopicSide(text string) (topic string, stance Stance, err error) {
	if strings.TrimSpace(text) == "" {
		return "", "", fmt.Errorf("%w: message must not be empty", ErrInvalidStart)
	}

	topicLoc := topicRx.FindStringIndex(text)
	sideLoc := sideRx.FindStringSubmatchIndex(text)

	switch {
	case topicLoc == nil && sideLoc == nil:
		return "", "", fmt.Errorf("%w: message must contain Topic: and Side: fields", ErrInvalidStart)
	case topicLoc == nil:
		return "", "", fmt.Errorf("%w: topic is missing", ErrInvalidStart)
	case sideLoc == nil:
		return "", "", fmt.Errorf("%w: side is missing", ErrInvalidStart)
	}

	end := len(text)
	if sideLoc[0] > topicLoc[1] {
		end = sideLoc[0]
	}
	topic = strings.Trim(text[topicLoc[1]:end], " .,\n\t")
	if topic == "" {
		return "", "", fmt.Errorf("%w: topic must not be empty", ErrInvalidStart)
	}
	if len(topic) > MaxTopicLen {
		return "", "", fmt.Errorf("%w: topic exceeds %d characters", ErrInvalidStart, MaxTopicLen)
	}

	stance, err = ParseStance(text[sideLoc[2]:sideLoc[3]])
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidStart, err)
	}

	return topic, stance, nil
}

// AssertNoTopicSideMarkers validates a continuation message: it must be
// non-empty and must not re-declare Topic: or Side:.
func AssertNoTopicSideMarkers(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: message must not be empty", ErrInvalidContinuation)
	}
	if markersRx.MatchString(text) {
		return fmt.Errorf("%w: topic/side must not be provided when continuing a conversation", ErrInvalidContinuation)
	}
	return nil
}
