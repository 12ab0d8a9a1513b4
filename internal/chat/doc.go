// Package chat speaks the agent streaming protocol on top of package stream.
//
// The server answers a question with JSON frames separated by a blank line:
//
//	{"event": "text", "data": "..."}
//
//	{"event": "img", "data": "https://..."}
//
// Event types are text, doc, img and error. The Decoder reassembles frames
// that span chunk boundaries and also accepts SSE-style "data:" lines.
package chat
