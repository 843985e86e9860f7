package core

import (
	"fmt"
	"strconv"
	"time"
)

// FrameMessage is the wire format published on the frame channel.
type FrameMessage struct {
	Timestamp int64  `json:"timestamp"`
	FrameData string `json:"frameData"` // Base64 encoded JPEG
}

// Moment is one indexed frame: what was seen and when.
type Moment struct {
	ID          string    `json:"id"`
	Timestamp   int64     `json:"timestamp"`
	Description string    `json:"description"`
	Embedding   []float32 `json:"-"`
}

// ContextItem is a query-time view of a retrieved Moment. Distance is the
// similarity-search score, lower means more similar.
type ContextItem struct {
	Description string  `json:"description"`
	Timestamp   int64   `json:"timestamp"`
	Datetime    string  `json:"datetime"`
	Distance    float64 `json:"distance"`
}

type AskRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	Question   string        `json:"question"`
	Answer     string        `json:"answer"`
	Timestamps []int64       `json:"timestamps"`
	Context    []ContextItem `json:"context"`
}

type StatsResponse struct {
	TotalFrames    int64  `json:"total_frames"`
	CollectionName string `json:"collection_name"`
}

// FrameID derives the index key for a timestamp. Re-ingesting the same
// timestamp overwrites the existing entry, so the scheme must stay stable
// across releases to keep old indexes usable.
func FrameID(timestamp int64) string {
	return "frame_" + strconv.FormatInt(timestamp, 10)
}

// FrameTime converts a frame timestamp to local wall-clock time.
func FrameTime(timestamp int64) time.Time {
	return time.Unix(timestamp, 0)
}

// ISOTime renders a frame timestamp the way it is stored in moment metadata.
func ISOTime(timestamp int64) string {
	return FrameTime(timestamp).Format("2006-01-02T15:04:05")
}

// ClockTime renders a frame timestamp as HH:MM:SS for answers.
func ClockTime(timestamp int64) string {
	return FrameTime(timestamp).Format("15:04:05")
}

// NewMoment builds a Moment for a frame description, deriving the id from
// the timestamp.
func NewMoment(timestamp int64, description string, embedding []float32) Moment {
	return Moment{
		ID:          FrameID(timestamp),
		Timestamp:   timestamp,
		Description: description,
		Embedding:   embedding,
	}
}

func (m Moment) String() string {
	return fmt.Sprintf("%s @%s: %s", m.ID, ISOTime(m.Timestamp), m.Description)
}
