// Package identity derives per-speaker memory identities and rewrites a
// two-party conversation into the perspective of each speaker.
package identity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/memorybench/core"
)

// Field names of the speaker metadata in a LoCoMo conversation.
const (
	SpeakerAKey = "speaker_a"
	SpeakerBKey = "speaker_b"
)

const timestampSuffix = "_date_time"

// Key returns the identity of speaker in the conversation at index.
func Key(speaker string, index int) string {
	return fmt.Sprintf("%s_%d", speaker, index)
}

// Pair returns the identities of both speakers of conv.
func Pair(conv core.Conversation, index int) (a, b string) {
	return Key(conv.SpeakerA, index), Key(conv.SpeakerB, index)
}

// DisplayName strips the conversation index suffix from an identity.
func DisplayName(identity string) string {
	i := strings.LastIndexByte(identity, '_')
	if i <= 0 {
		return identity
	}
	if _, err := strconv.Atoi(identity[i+1:]); err != nil {
		return identity
	}
	return identity[:i]
}

// IsMetadataKey reports whether a conversation field holds speaker names or
// timestamps rather than turns.
func IsMetadataKey(key string) bool {
	return key == SpeakerAKey || key == SpeakerBKey ||
		strings.Contains(key, "date") || strings.Contains(key, "timestamp")
}

// TimestampKey returns the field supplying the timestamp of a segment.
func TimestampKey(segment string) string {
	return segment + timestampSuffix
}

// SegmentView is one segment seen from both identities. A and B carry the
// same turns with mirrored roles.
type SegmentView struct {
	Key       string
	Timestamp string
	A         []core.Message
	B         []core.Message
}

// Perspectives rewrites every segment of conv. In A's view A's turns are
// core.RoleSelf and B's core.RoleOther; B's view is the mirror image.
func Perspectives(conv core.Conversation) ([]SegmentView, error) {
	views := make([]SegmentView, 0, len(conv.Segments))
	for _, seg := range conv.Segments {
		v := SegmentView{
			Key:       seg.Key,
			Timestamp: seg.Timestamp,
			A:         make([]core.Message, 0, len(seg.Turns)),
			B:         make([]core.Message, 0, len(seg.Turns)),
		}
		for _, turn := range seg.Turns {
			content := turn.Speaker + ": " + turn.Text
			switch turn.Speaker {
			case conv.SpeakerA:
				v.A = append(v.A, core.Message{Role: core.RoleSelf, Content: content})
				v.B = append(v.B, core.Message{Role: core.RoleOther, Content: content})
			case conv.SpeakerB:
				v.A = append(v.A, core.Message{Role: core.RoleOther, Content: content})
				v.B = append(v.B, core.Message{Role: core.RoleSelf, Content: content})
			default:
				return nil, &core.UnknownSpeakerError{Speaker: turn.Speaker, Segment: seg.Key}
			}
		}
		views = append(views, v)
	}
	return views, nil
}
