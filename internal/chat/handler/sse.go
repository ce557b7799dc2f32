package handler

import (
	"fmt"
	"net/http"

	dErrors "scubaai/pkg/domain-errors"
)

// Stream terminator sentinels on the wire, matched by existing clients.
const (
	doneEvent   = "[DONE]"
	errorPrefix = "[ERROR]: "
)

// sseEmitter writes assistant tokens as server-sent events. Headers go out
// on Begin, so any failure before that can still become a plain JSON error.
type sseEmitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEEmitter(w http.ResponseWriter) *sseEmitter {
	flusher, _ := w.(http.Flusher)
	return &sseEmitter{w: w, flusher: flusher}
}

func (e *sseEmitter) Begin() error {
	e.w.Header().Set("Content-Type", "text/event-stream")
	e.w.Header().Set("Cache-Control", "no-cache")
	e.w.Header().Set("Connection", "keep-alive")
	e.w.WriteHeader(http.StatusOK)
	e.flush()
	return nil
}

func (e *sseEmitter) Chunk(text string) error {
	return e.write(text)
}

func (e *sseEmitter) End() error {
	return e.write(doneEvent)
}

func (e *sseEmitter) Fail(err error) error {
	return e.write(errorPrefix + dErrors.MessageOf(err))
}

func (e *sseEmitter) write(data string) error {
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return err
	}
	e.flush()
	return nil
}

func (e *sseEmitter) flush() {
	if e.flusher != nil {
		e.flusher.Flush()
	}
}
