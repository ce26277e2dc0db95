// ===============================
// internal/storage/r2.go - Cloudflare R2 object storage for payment proofs
// ===============================

package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"freezybe/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
)

// Proof screenshots are private; admins read them through short-lived links.
const presignTTL = 15 * time.Minute

type R2Client struct {
	client     *s3.S3
	bucketName string
	publicURL  string
}

func NewR2Client(cfg config.R2Config) (*R2Client, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String("auto"),
		Endpoint:         aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create R2 session")
	}

	return &R2Client{
		client:     s3.New(sess),
		bucketName: cfg.BucketName,
		publicURL:  cfg.PublicURL,
	}, nil
}

// PaymentProofKey builds the object key for a user's screenshot.
func PaymentProofKey(uid, id, ext string) string {
	return fmt.Sprintf("payment-proofs/%s/%s%s", uid, id, ext)
}

func (r *R2Client) Upload(ctx context.Context, key string, body io.ReadSeeker, contentType string) error {
	_, err := r.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to upload %s to R2", key)
	}
	return nil
}

func (r *R2Client) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to delete %s from R2", key)
	}
	return nil
}

// URL returns the stored location of key.
func (r *R2Client) URL(key string) string {
	return fmt.Sprintf("%s/%s", r.publicURL, key)
}

// SignedURL returns a temporary download link for key.
func (r *R2Client) SignedURL(key string) (string, error) {
	req, _ := r.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
	})
	link, err := req.Presign(presignTTL)
	if err != nil {
		return "", errors.Wrapf(err, "failed to sign %s", key)
	}
	return link, nil
}
