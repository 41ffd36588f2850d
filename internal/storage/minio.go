package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"career-agent-go/internal/config"
	"career-agent-go/internal/logger"

	"github.com/gofrs/uuid/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// ObjectStorage 对象存储接口
type ObjectStorage interface {
	// ArchiveResume 归档简历原件，返回对象键和内容MD5
	ArchiveResume(ctx context.Context, userID, fileExt string, reader io.Reader, fileSize int64) (string, string, error)

	// ArchiveGeneratedDocument 归档生成的简历文档(PDF/DOCX)
	ArchiveGeneratedDocument(ctx context.Context, userID, fileExt string, data []byte) (string, error)

	// GetObject 按对象键下载
	GetObject(ctx context.Context, objectKey string) ([]byte, error)

	// GetPresignedURL 获取限时下载链接
	GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)

	// DeleteObject 删除对象
	DeleteObject(ctx context.Context, objectKey string) error
}

// 确保MinIO实现了ObjectStorage接口
var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供对象存储功能
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	bucket string
}

// NewMinIO 创建MinIO客户端并确保简历存储桶存在
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	bucket := cfg.ResumeBucket
	if bucket == "" {
		bucket = "career-resumes"
	}

	m := &MinIO{
		client: client,
		cfg:    cfg,
		bucket: bucket,
	}

	if err := m.ensureBucketExists(bucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保简历存储桶 %s 存在失败: %w", bucket, err)
	}

	if cfg.OriginalFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(context.Background(), bucket, "expire-resumes", cfg.OriginalFileExpireDays); err != nil {
			// 生命周期规则失败不致命，MinIO集群可能未开启该功能
			logger.Warn().Err(err).Str("bucket", bucket).Msg("设置对象生命周期规则失败")
		}
	}

	logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", bucket).Msg("MinIO客户端初始化完成")
	return m, nil
}

func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		if err := m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
		logger.Info().Str("bucket", bucketName).Msg("存储桶已创建")
	}
	return nil
}

func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, lc)
}

// ArchiveResume 流式归档简历原件并同时计算MD5。
// 对象键格式: resumes/{userID}/{uuid}{ext}
func (m *MinIO) ArchiveResume(ctx context.Context, userID, fileExt string, reader io.Reader, fileSize int64) (string, string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", "", fmt.Errorf("生成对象键失败: %w", err)
	}
	objectKey := fmt.Sprintf("resumes/%s/%s%s", userID, id.String(), fileExt)

	md5Hash := md5.New()
	teeReader := io.TeeReader(reader, md5Hash)

	info, err := m.client.PutObject(ctx, m.bucket, objectKey, teeReader,
		fileSize, minio.PutObjectOptions{ContentType: contentTypeForExt(fileExt)})
	if err != nil {
		return "", "", fmt.Errorf("归档简历原件失败: %w", err)
	}

	md5Hex := hex.EncodeToString(md5Hash.Sum(nil))
	logger.Debug().
		Str("object_key", objectKey).
		Int64("size", info.Size).
		Str("md5", md5Hex).
		Msg("简历原件已归档")
	return objectKey, md5Hex, nil
}

// ArchiveGeneratedDocument 归档一次渲染产物。
// 对象键格式: generated/{userID}/{uuid}{ext}
func (m *MinIO) ArchiveGeneratedDocument(ctx context.Context, userID, fileExt string, data []byte) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("生成对象键失败: %w", err)
	}
	objectKey := fmt.Sprintf("generated/%s/%s%s", userID, id.String(), fileExt)

	_, err = m.client.PutObject(ctx, m.bucket, objectKey, bytes.NewReader(data),
		int64(len(data)), minio.PutObjectOptions{ContentType: contentTypeForExt(fileExt)})
	if err != nil {
		return "", fmt.Errorf("归档生成文档失败: %w", err)
	}
	return objectKey, nil
}

// GetObject 按对象键下载完整内容
func (m *MinIO) GetObject(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", m.bucket, objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", m.bucket, objectKey, err)
	}
	return data, nil
}

// GetPresignedURL 获取预签名URL
func (m *MinIO) GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	presignedURL, err := m.client.PresignedGetObject(ctx, m.bucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成MinIO预签名URL失败: %w", err)
	}
	return presignedURL.String(), nil
}

// DeleteObject 删除对象
func (m *MinIO) DeleteObject(ctx context.Context, objectKey string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", objectKey, err)
	}
	return nil
}

func contentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt", ".md":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}
