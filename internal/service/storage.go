package service

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/user/movienest/internal/config"
	"github.com/user/movienest/internal/logger"
)

type objectLister interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type objectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// StorageService S3 兼容对象存储
type StorageService struct {
	lister    objectLister
	presigner objectPresigner
	bucket    string
	prefix    string
	expiry    time.Duration
	log       *logrus.Entry
}

// NewStorageService 创建对象存储服务，使用自定义 endpoint 和 path-style 寻址
func NewStorageService(cfg config.StorageConfig) *StorageService {
	endpoint := cfg.Endpoint
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}

	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(endpoint),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	})

	return newStorageService(client, s3.NewPresignClient(client), cfg)
}

func newStorageService(lister objectLister, presigner objectPresigner, cfg config.StorageConfig) *StorageService {
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &StorageService{
		lister:    lister,
		presigner: presigner,
		bucket:    cfg.Bucket,
		prefix:    cfg.Prefix,
		expiry:    expiry,
		log:       logger.Component("storage"),
	}
}

// Exists 是否存在以 hash 为前缀的对象，只看第一页
func (s *StorageService) Exists(ctx context.Context, hash string) (bool, error) {
	key, err := s.firstKey(ctx, hash)
	if err != nil {
		return false, err
	}
	return key != "", nil
}

// PresignDownload 生成限时下载链接，对象不存在时返回 ErrNotFound 且不签名
func (s *StorageService) PresignDownload(ctx context.Context, hash, title, year string) (string, error) {
	key, err := s.firstKey(ctx, hash)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("object %s: %w", hash, ErrNotFound)
	}

	filename := DownloadFilename(title, year, key)
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf(`attachment; filename="%s"`, filename)),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", &UpstreamError{Service: "s3", Op: "presign", Err: err}
	}

	s.log.WithFields(logrus.Fields{"hash": hash, "key": key}).Info("已生成下载链接")
	return req.URL, nil
}

// DownloadFilename 由标题和年份生成文件名，扩展名取自对象 key
func DownloadFilename(title, year, key string) string {
	return unsafeFilenameChars.ReplaceAllString(title, "_") + "_" + year + path.Ext(key)
}

func (s *StorageService) firstKey(ctx context.Context, hash string) (string, error) {
	out, err := s.lister.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.prefix + hash),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		s.log.WithError(err).WithField("hash", hash).Warn("列举对象失败")
		return "", &UpstreamError{Service: "s3", Op: "list", Err: err}
	}
	for _, obj := range out.Contents {
		if obj.Key != nil && *obj.Key != "" {
			return *obj.Key, nil
		}
	}
	return "", nil
}
