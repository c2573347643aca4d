package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"notes-app/src/domain"
	"notes-app/src/metrics"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"
)

// S3Config S3接続設定
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	UseSSL          bool
	KeyPrefix       string
	PresignTTL      time.Duration
}

// S3ObjectStore domain.ObjectStoreのS3実装
type S3ObjectStore struct {
	s3Client *s3.S3
	config   *S3Config
	logger   *logrus.Logger
}

// NewS3ObjectStore S3オブジェクトストアを作成
func NewS3ObjectStore(config *S3Config, logger *logrus.Logger) (*S3ObjectStore, error) {
	awsConfig := &aws.Config{
		Region:           aws.String(config.Region),
		Credentials:      credentials.NewStaticCredentials(config.AccessKeyID, config.SecretAccessKey, ""),
		DisableSSL:       aws.Bool(!config.UseSSL),
		S3ForcePathStyle: aws.Bool(true), // MinIOなどのS3互換ストレージ用
	}

	// エンドポイントが指定されている場合（MinIOなど）
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("AWSセッションの作成に失敗: %w", err)
	}

	if config.PresignTTL <= 0 {
		config.PresignTTL = 15 * time.Minute
	}

	return &S3ObjectStore{
		s3Client: s3.New(sess),
		config:   config,
		logger:   logger,
	}, nil
}

// Put オブジェクトをアップロード
func (s *S3ObjectStore) Put(ctx context.Context, key string, data []byte, opts domain.PutOptions) (err error) {
	defer func(start time.Time) { metrics.ObserveRemoteCall("storage", "put", start, err) }(time.Now())

	objectKey := s.objectKey(key)
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]*string{
			"upload-time": aws.String(time.Now().Format(time.RFC3339)),
			"source":      aws.String("notes-app"),
		},
	})
	if err != nil {
		return fmt.Errorf("S3アップロードに失敗 (key=%s): %w", objectKey, err)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": s.config.Bucket,
		"key":    objectKey,
		"size":   len(data),
	}).Info("オブジェクトをS3にアップロードしました")
	return nil
}

// Get 一時的に取得可能な署名付きURLを発行
func (s *S3ObjectStore) Get(ctx context.Context, key string) (url string, err error) {
	defer func(start time.Time) { metrics.ObserveRemoteCall("storage", "get", start, err) }(time.Now())

	objectKey := s.objectKey(key)
	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(objectKey),
	})
	req.SetContext(ctx)

	url, err = req.Presign(s.config.PresignTTL)
	if err != nil {
		return "", fmt.Errorf("署名付きURLの発行に失敗 (key=%s): %w", objectKey, err)
	}

	s.logger.WithField("key", objectKey).Debug("署名付きURLを発行しました")
	return url, nil
}

// Remove オブジェクトを削除
func (s *S3ObjectStore) Remove(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { metrics.ObserveRemoteCall("storage", "remove", start, err) }(time.Now())

	objectKey := s.objectKey(key)
	_, err = s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("S3オブジェクトの削除に失敗 (key=%s): %w", objectKey, err)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": s.config.Bucket,
		"key":    objectKey,
	}).Info("オブジェクトをS3から削除しました")
	return nil
}

// WithKeyPrefix 接続を共有したまま別のプレフィックス配下を扱うストアを返す
func (s *S3ObjectStore) WithKeyPrefix(prefix string) *S3ObjectStore {
	config := *s.config
	config.KeyPrefix = prefix
	return &S3ObjectStore{
		s3Client: s.s3Client,
		config:   &config,
		logger:   s.logger,
	}
}

// KeyPrefix このストアが扱うキーのプレフィックス
func (s *S3ObjectStore) KeyPrefix() string {
	return s.config.KeyPrefix
}

// objectKey プレフィックスは常に付ける（呼び出し側のキーで他の領域を指せないようにする）
func (s *S3ObjectStore) objectKey(key string) string {
	return s.config.KeyPrefix + key
}
