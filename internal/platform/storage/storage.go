// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

/*
Package storage defines the file-storage collaborator used for user photos.

The contract hides where files live and how they are processed: callers hand
over an image buffer and get back the filename the profile should reference.
Implementations own resizing and format normalisation.
*/
package storage

import "context"

// # Contract

// Store persists uploaded images.
type Store interface {

	// SaveUserPhoto processes and stores a profile photo, returning the
	// assigned filename. Implementations resize to a fixed square before
	// storing.
	SaveUserPhoto(ctx context.Context, userID string, image []byte) (string, error)
}
