package chat

import (
	"bufio"
	"io"
)

// StartOutboundWriter drains c.Out onto conn, one flushed write per frame.
// It stops on a write error or once c.Done fires, draining anything still
// buffered first so queued leave notices reach the peer.
func StartOutboundWriter(conn io.Writer, c *Client) {
	go func() {
		w := bufio.NewWriter(conn)
		for {
			select {
			case frame := <-c.Out:
				if !writeFrame(w, frame) {
					return
				}
			case <-c.done:
				for {
					select {
					case frame := <-c.Out:
						if !writeFrame(w, frame) {
							return
						}
					default:
						return
					}
				}
			}
		}
	}()
}

func writeFrame(w *bufio.Writer, frame []byte) bool {
	// Best-effort. If the connection breaks, just stop the writer.
	if _, err := w.Write(frame); err != nil {
		return false
	}
	return w.Flush() == nil
}
