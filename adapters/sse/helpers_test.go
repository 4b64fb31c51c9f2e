package sse_test

import (
	"io"
	"log"
)

func init() {
	log.SetOutput(io.Discard)
}

// Message is the payload type used across the sse tests.
type Message struct {
	Data string `json:"data"`
}
