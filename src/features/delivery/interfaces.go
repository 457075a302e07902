package delivery

import "context"

// Session is one open connection to the remote library.
type Session interface {
	// Upload copies a local file to remotePath, replacing anything already there.
	Upload(ctx context.Context, localPath, remotePath string) error
	Close() error
}

// Dialer opens sessions to the remote library.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}
