package model

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
)

// Song is the canonical record of one rendered track.
type Song struct {
	ID       string  `json:"id,omitempty"`
	AudioURL string  `json:"audioUrl"`
	ImageURL string  `json:"imageUrl,omitempty"`
	Title    string  `json:"title,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Filename returns a download filename derived from the song title.
func (s *Song) Filename() string {
	if s == nil || s.Title == "" {
		return "generated-music.mp3"
	}
	return unsafeFilenameChars.ReplaceAllString(s.Title, "_") + ".mp3"
}

// CallbackShape tags the layout a provider payload arrived in.
type CallbackShape int

const (
	ShapeUnknown CallbackShape = iota
	// {"data": {"data": [song, ...]}}, the provider's callback envelope
	ShapeNestedList
	// {"data": [song, ...]}
	ShapeDataList
	// [song, ...]
	ShapeBareList
	// {"audio_url": ...}
	ShapeBareSong
)

func (s CallbackShape) String() string {
	switch s {
	case ShapeNestedList:
		return "data.data[]"
	case ShapeDataList:
		return "data[]"
	case ShapeBareList:
		return "[]"
	case ShapeBareSong:
		return "song"
	default:
		return "unknown"
	}
}

// providerSong is a song as the music provider serialises it. Fields decode
// leniently so a mistyped field never discards the audio URL.
type providerSong struct {
	ID       looseString `json:"id"`
	AudioURL looseString `json:"audio_url"`
	ImageURL looseString `json:"image_url"`
	Title    looseString `json:"title"`
	Duration looseFloat  `json:"duration"`
}

func (p providerSong) toSong() *Song {
	return &Song{
		ID:       string(p.ID),
		AudioURL: string(p.AudioURL),
		ImageURL: string(p.ImageURL),
		Title:    string(p.Title),
		Duration: float64(p.Duration),
	}
}

// looseString accepts a JSON string or number; anything else decodes empty.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err == nil {
		*s = looseString(num.String())
	}
	return nil
}

// looseFloat accepts a JSON number or a numeric string; anything else is 0.
type looseFloat float64

func (f *looseFloat) UnmarshalJSON(b []byte) error {
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		var str string
		if json.Unmarshal(b, &str) != nil {
			return nil
		}
		num = json.Number(str)
	}
	if v, err := strconv.ParseFloat(num.String(), 64); err == nil {
		*f = looseFloat(v)
	}
	return nil
}

// DetectShape classifies raw and returns the raw JSON of the first song
// candidate. Only the first element of a list is ever considered.
func DetectShape(raw []byte) (CallbackShape, json.RawMessage) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ShapeUnknown, nil
	}

	switch raw[0] {
	case '[':
		if first, ok := firstElement(raw); ok {
			return ShapeBareList, first
		}
		return ShapeUnknown, nil
	case '{':
	default:
		return ShapeUnknown, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ShapeUnknown, nil
	}

	if data := bytes.TrimSpace(obj["data"]); len(data) > 0 {
		switch data[0] {
		case '[':
			if first, ok := firstElement(data); ok {
				return ShapeDataList, first
			}
		case '{':
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(data, &inner); err == nil {
				if first, ok := firstElement(bytes.TrimSpace(inner["data"])); ok {
					return ShapeNestedList, first
				}
			}
		}
	}

	if _, ok := obj["audio_url"]; ok {
		return ShapeBareSong, raw
	}
	return ShapeUnknown, nil
}

func firstElement(raw []byte) (json.RawMessage, bool) {
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return nil, false
	}
	return items[0], true
}

// ExtractSong normalises any known payload layout into a Song. It returns
// nil when the first candidate is not an object carrying an audio URL.
func ExtractSong(raw []byte) (*Song, CallbackShape) {
	shape, candidate := DetectShape(raw)
	if shape == ShapeUnknown {
		return nil, shape
	}
	var ps providerSong
	if err := json.Unmarshal(candidate, &ps); err != nil || ps.AudioURL == "" {
		return nil, shape
	}
	return ps.toSong(), shape
}
