// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// # Development Store

// NoopStore satisfies [Store] without writing anything anywhere.
//
// Used in development and tests: it assigns the filename a real store
// would and logs the upload instead of processing it.
type NoopStore struct {
	logger *slog.Logger
}

// NewNoopStore constructs the development store.
func NewNoopStore(logger *slog.Logger) *NoopStore {
	return &NoopStore{logger: logger}
}

// SaveUserPhoto assigns the canonical filename and drops the image.
func (store *NoopStore) SaveUserPhoto(_ context.Context, userID string, image []byte) (string, error) {
	filename := fmt.Sprintf("user-%s.jpeg", userID)

	store.logger.Info("dev_photo_upload",
		slog.String("filename", filename),
		slog.Int("bytes", len(image)),
	)

	return filename, nil
}
