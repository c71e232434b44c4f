package export

import (
	"context"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
)

// GCS writes part files to a Cloud Storage bucket under Prefix.
type GCS struct {
	Client *storage.Client
	Bucket string
	Prefix string
}

// NewGCS uses application default credentials.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	c, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCS{Client: c, Bucket: bucket, Prefix: prefix}, nil
}

func (g *GCS) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	w := g.Client.Bucket(g.Bucket).Object(path.Join(g.Prefix, name)).NewWriter(ctx)
	w.ContentType = "application/x-ndjson"
	return w, nil
}

func (g *GCS) String() string {
	return "gs://" + path.Join(g.Bucket, g.Prefix)
}

func (g *GCS) Close() error {
	return g.Client.Close()
}
