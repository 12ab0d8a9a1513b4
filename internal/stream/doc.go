// Package stream consumes incrementally delivered HTTP response bodies.
//
// Open issues one POST and, on a 2xx reply with a body, returns a Stream: a
// lazy, single-pass sequence of opaque byte fragments in arrival order. The
// package does not interpret framing; see package chat for the agent
// protocol spoken over it.
//
// Streams do not take part in token refresh. A 401 is returned from Open as
// a terminal *apierror.RequestError.
//
// A Stream is read with Next or by ranging over Chunks:
//
//	s, err := streams.Open(ctx, "/chat/ask_a2a_streaming", payload)
//	if err != nil {
//	    return err
//	}
//	for chunk, err := range s.Chunks() {
//	    if err != nil {
//	        return err
//	    }
//	    os.Stdout.Write(chunk)
//	}
//
// Breaking out of the loop, or calling Close, releases the connection before
// returning.
package stream
