package stream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/HaPhanBaoMinh/kubepulse/internal/domain"
)

// DecodeError marks a frame that is not valid JSON or does not match the
// envelope/snapshot schema. The frame is dropped; the stream continues.
type DecodeError struct {
	Stage string // "envelope" or "payload"
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Cause lets github.com/pkg/errors.Cause see through the wrapper.
func (e *DecodeError) Cause() error { return e.Err }

var errNoPayload = errors.New("state message without payload")

// Decode parses one frame. ok is false for well-formed messages of a type
// this client does not act on.
func Decode(frame []byte) (snapshot domain.ClusterData, ok bool, err error) {
	var env domain.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return domain.ClusterData{}, false, &DecodeError{Stage: "envelope", Err: err}
	}
	if env.Type != domain.MessageState {
		return domain.ClusterData{}, false, nil
	}
	if p := bytes.TrimSpace(env.Payload); len(p) == 0 || bytes.Equal(p, []byte("null")) {
		return domain.ClusterData{}, false, &DecodeError{Stage: "payload", Err: errNoPayload}
	}
	var body struct {
		Nodes []json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(env.Payload, &body); err != nil {
		return domain.ClusterData{}, false, &DecodeError{Stage: "payload", Err: err}
	}
	if body.Nodes != nil {
		snapshot.Nodes = make([]domain.Node, 0, len(body.Nodes))
	}
	for _, raw := range body.Nodes {
		if n, ok := decodeNode(raw, &snapshot.Rejected); ok {
			snapshot.Nodes = append(snapshot.Nodes, n)
		}
	}
	return snapshot, true, nil
}

// nodeRecord leaves pods raw so each one is read on its own.
type nodeRecord struct {
	domain.Node
	Pods []json.RawMessage `json:"pods"`
}

// decodeNode reads one node record. A record with a value of the wrong
// type is rejected alone; its unreadable pods are rejected one by one.
func decodeNode(raw json.RawMessage, rejected *[]domain.Rejection) (domain.Node, bool) {
	var rec nodeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		*rejected = append(*rejected, reject("node", rec.ID, err))
		return domain.Node{}, false
	}
	n := rec.Node
	if rec.Pods != nil {
		n.Pods = make([]domain.Pod, 0, len(rec.Pods))
	}
	for _, praw := range rec.Pods {
		var p domain.Pod
		if err := json.Unmarshal(praw, &p); err != nil {
			*rejected = append(*rejected, reject("pod", p.ID, err))
			continue
		}
		n.Pods = append(n.Pods, p)
	}
	return n, true
}

// reject describes err against the record. Type errors name the field;
// the id is whatever was read before the error.
func reject(kind, id string, err error) domain.Rejection {
	r := domain.Rejection{Kind: kind, ID: id, Field: "record", Reason: err.Error()}
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		if te.Field != "" {
			r.Field = te.Field
		}
		r.Reason = "has invalid value (" + te.Value + ")"
	}
	return r
}
