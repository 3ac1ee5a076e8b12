package chat

import (
	"context"
	"fmt"
	"path"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/rubihq/chat-sync/internal/models"
)

// Attachments uploads binary payloads to blob storage and resolves the
// durable reference a message needs before it can be created. It never
// creates a message row itself: the send path can retry message creation
// without re-uploading.
type Attachments struct {
	store BlobStore
	pool  *workerpool.WorkerPool
}

func NewAttachments(store BlobStore, workers int) *Attachments {
	if workers <= 0 {
		workers = 1
	}
	return &Attachments{
		store: store,
		pool:  workerpool.New(workers),
	}
}

// Upload stores the payload under a path namespaced by the author with a
// collision-resistant generated name, keeping the original extension. On
// success it returns the public reference; on failure nothing is touched.
func (a *Attachments) Upload(ctx context.Context, authorID, filename string, data []byte, contentType string) (*models.Attachment, error) {
	objectPath := fmt.Sprintf("%s/%s%s", authorID, uuid.NewString(), path.Ext(filename))

	var uploadErr error
	a.pool.SubmitWait(func() {
		uploadErr = a.store.Upload(ctx, objectPath, data, contentType)
	})
	if uploadErr != nil {
		return nil, &models.UploadError{Path: objectPath, Err: uploadErr}
	}

	return &models.Attachment{
		URL:         a.store.PublicURL(objectPath),
		ContentType: contentType,
		MediaKind:   models.MediaKindFromContentType(contentType),
	}, nil
}

// Close waits for in-flight uploads to finish.
func (a *Attachments) Close() {
	a.pool.StopWait()
}
