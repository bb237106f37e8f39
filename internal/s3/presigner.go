package s3

import (
	"context"
	"time"

	"avatar-service/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const uploadURLExpiry = 15 * time.Minute

type FilePresigner struct {
	S3PresignClient *s3.PresignClient
	BucketName      string
}

func NewFilePresigner(ctx context.Context, cfg config.S3Config) (*FilePresigner, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &FilePresigner{
		S3PresignClient: s3.NewPresignClient(s3Client),
		BucketName:      cfg.BucketName,
	}, nil
}

// GeneratePresignedUploadURL signs a PUT for objectKey. Signing is local; no
// request is sent to the object store.
func (p *FilePresigner) GeneratePresignedUploadURL(ctx context.Context, objectKey string) (string, error) {
	request, err := p.S3PresignClient.PresignPutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket: aws.String(p.BucketName),
			Key:    aws.String(objectKey),
		},
		s3.WithPresignExpires(uploadURLExpiry),
	)
	if err != nil {
		return "", err
	}

	return request.URL, nil
}
