package runtime

import (
	"encoding/json"
	"errors"
	"io"
	"iter"
	"sync"

	"github.com/docker/docker/pkg/jsonmessage"
)

type jsonPullStream struct {
	body      io.ReadCloser
	closeOnce sync.Once
	closeErr  error
}

// NewPullStream decodes the engine's newline-delimited JSON pull output from
// body. The stream owns body and closes it when drained or closed.
func NewPullStream(body io.ReadCloser) PullStream {
	return &jsonPullStream{body: body}
}

func (s *jsonPullStream) Close() error {
	s.closeOnce.Do(func() {
		if s.body != nil {
			s.closeErr = s.body.Close()
		}
	})
	return s.closeErr
}

// Events yields each decoded message in order. An engine-reported error is
// yielded once as a *PullError and ends the sequence. A torn connection is
// classified as runtime unavailable.
func (s *jsonPullStream) Events() iter.Seq2[PullEvent, error] {
	return func(yield func(PullEvent, error) bool) {
		defer s.Close()
		if s.body == nil {
			return
		}
		decoder := json.NewDecoder(s.body)
		for {
			var msg jsonmessage.JSONMessage
			if err := decoder.Decode(&msg); err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				yield(PullEvent{}, classify("pull", err))
				return
			}
			event := PullEvent{ID: msg.ID, Status: msg.Status}
			if msg.Progress != nil {
				event.Current = msg.Progress.Current
				event.Total = msg.Progress.Total
			}
			if msg.Error != nil {
				event.Message = msg.Error.Message
				yield(event, &PullError{Code: msg.Error.Code, Message: msg.Error.Message})
				return
			}
			if !yield(event, nil) {
				return
			}
		}
	}
}

// Drain consumes stream to completion, forwarding each event to observe when
// it is non-nil. It returns the first stream error.
func Drain(stream PullStream, observe func(PullEvent)) error {
	defer stream.Close()
	for event, err := range stream.Events() {
		if err != nil {
			return err
		}
		if observe != nil {
			observe(event)
		}
	}
	return nil
}
