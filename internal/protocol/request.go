// Package protocol is the Protocol Dispatcher from SPEC_FULL.md §4.5: it
// parses both framing modes on the same WebSocket (JSON text and a fixed
// binary envelope), routes to the appropriate handler, and assembles either
// a unicast reply or a broadcast.
package protocol

import "encoding/json"

// Request is the JSON wire shape; colorID travels as a string. The tags give
// each field name's canonical case, but decoding goes through encoding/json,
// which also accepts keys that differ from it only in case.
type Request struct {
	RequestType string          `json:"requestType"`
	UserID      string          `json:"userID"`
	X           int             `json:"X"`
	Y           int             `json:"Y"`
	ColorID     string          `json:"colorID"`
	Name        string          `json:"name"`
	Cmd         json.RawMessage `json:"cmd"`
}

// AdminCmd is the nested shape of an admin_cmd request's "cmd" field.
type AdminCmd struct {
	Action  string `json:"action"`
	Coords  [2]int `json:"coords"`
	ColorID int    `json:"colorID"`
	Message string `json:"message"`
	UUID    string `json:"uuid"`
}

// ParseRequest decodes one JSON text frame.
func ParseRequest(raw []byte) (Request, error) {
	var r Request
	err := json.Unmarshal(raw, &r)
	return r, err
}
