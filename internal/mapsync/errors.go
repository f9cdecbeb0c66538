package mapsync

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies widget failures for the user-facing overlay.
type Kind string

const (
	KindTileFetch Kind = "tile_fetch"
	KindRender    Kind = "render"
)

// TileError is a basemap tile request that failed.
type TileError struct {
	URL    string
	Status int
	Err    error
}

func (e *TileError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("tile fetch %s: status %d", e.URL, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("tile fetch %s: %v", e.URL, e.Err)
	}
	return "tile fetch " + e.URL + " failed"
}

func (e *TileError) Unwrap() error { return e.Err }

// RenderError is any other widget failure.
type RenderError struct {
	Op  string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("map %s: %v", e.Op, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Classify reports whether err came from tile fetching or rendering. Any
// error that is not a TileError counts as a render failure.
func Classify(err error) Kind {
	var te *TileError
	if errors.As(err, &te) {
		return KindTileFetch
	}
	return KindRender
}

// UserMessage is the text shown on the blocking map overlay.
func UserMessage(k Kind) string {
	if k == KindTileFetch {
		return "Basemap tiles could not be loaded. Check your network connection or the tile server, then reload the map."
	}
	return "The map could not be rendered. Reload the page to try again."
}

// ClientReport is an error event raised by the browser's mapping widget.
type ClientReport struct {
	Message string `json:"message" validate:"required,max=2000"`
	Status  int    `json:"status" validate:"gte=0,lt=600"`
	URL     string `json:"url" validate:"omitempty,max=2048"`
	Source  string `json:"source" validate:"omitempty,max=128"`
}

// Err converts the report into a typed error. Reports that carry a tile URL
// or mention tiles are tile failures.
func (r ClientReport) Err() error {
	msg := strings.ToLower(r.Message)
	if r.URL != "" || strings.Contains(msg, "tile") || r.Source == "basemap" {
		return &TileError{URL: r.URL, Status: r.Status, Err: errors.New(r.Message)}
	}
	return &RenderError{Op: "client", Err: errors.New(r.Message)}
}
