package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore отдает объекты по бакету и ключу.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// Loader читает аудио из файловой системы или из s3://bucket/key.
type Loader struct {
	Objects ObjectStore
}

func NewLoader(objects ObjectStore) *Loader {
	return &Loader{Objects: objects}
}

// Load читает файл в отдельной горутине: вызывающий не блокируется дольше, чем живет ctx.
func (l *Loader) Load(ctx context.Context, path string) ([]byte, error) {
	if bucket, key, ok := splitObjectPath(path); ok {
		if l.Objects == nil {
			return nil, fmt.Errorf("audio: %s: object storage is not configured", path)
		}
		return l.Objects.Get(ctx, bucket, key)
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := os.ReadFile(path)
		done <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("audio: чтение %s: %w", path, res.err)
		}
		if len(res.data) == 0 {
			return nil, fmt.Errorf("audio: %s: %w", path, ErrNoAudio)
		}
		return res.data, nil
	}
}

func splitObjectPath(path string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(path, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// MinioStore - ObjectStore поверх MinIO/S3.
type MinioStore struct {
	client *minio.Client
}

func NewMinioStore(endpoint, accessKeyID, secretAccessKey string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}
	return &MinioStore{client: client}, nil
}

func (s *MinioStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, bucket, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object '%s' data: %w", key, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("audio: s3://%s/%s: %w", bucket, key, ErrNoAudio)
	}
	return data, nil
}
