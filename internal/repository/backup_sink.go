package repository

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BackupSink 在文档被丢弃前或定期快照时保存副本
type BackupSink interface {
	Backup(ctx context.Context, name string, data []byte) (string, error)
}

type LocalBackupSink struct {
	Dir string
}

func NewLocalBackupSink(dir string) *LocalBackupSink {
	return &LocalBackupSink{Dir: dir}
}

func (s *LocalBackupSink) Backup(ctx context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", err
	}
	dst := filepath.Join(s.Dir, name)
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", err
	}
	return dst, nil
}

type MinioBackupSink struct {
	Client *minio.Client
	Bucket string
}

func NewMinioBackupSink(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioBackupSink, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return &MinioBackupSink{Client: client, Bucket: bucket}, nil
}

func (s *MinioBackupSink) Backup(ctx context.Context, name string, data []byte) (string, error) {
	_, err := s.Client.PutObject(ctx, s.Bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", err
	}
	return "/" + s.Bucket + "/" + name, nil
}
