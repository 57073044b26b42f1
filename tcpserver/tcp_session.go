package tcpserver

// TCPServerSession is the interface that must be implemented by each connection
// session. The server creates a session per connection and runs Handle in a
// goroutine; the session is responsible for reading, processing and writing
// until its connection ends.
type TCPServerSession interface {
	// ID returns the session's unique identifier assigned by the server.
	ID() uint64

	// Handle runs the session until the connection is closed. It must not
	// return while goroutines it started still use the connection.
	Handle()

	// Close closes the session and releases resources. It must be safe to
	// call multiple times and concurrently with Handle.
	Close() error
}
