// Package publish uploads finished frames and their thumbnails to S3-compatible storage.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/nfnt/resize"

	"github.com/df07/go-whitted-raytracer/pkg/config"
	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/frame"
	"github.com/df07/go-whitted-raytracer/pkg/renderer"
)

const (
	// UploadTimeout bounds a single object upload
	UploadTimeout = 30 * time.Second
	// ThumbnailSize is the bounding box of generated thumbnails
	ThumbnailSize = 160
)

// Upload describes one published frame
type Upload struct {
	Key          string
	ThumbnailKey string
	URL          string
	Bytes        int
}

// S3Publisher stores encoded frames in a bucket
type S3Publisher struct {
	client s3iface.S3API
	bucket string
	prefix string
	cdnURL string
	format string
	scale  int
	now    func() time.Time
}

// NewS3Publisher creates a publisher using client. Keys are placed under
// prefix and public URLs are built from cdnURL when it is set.
func NewS3Publisher(client s3iface.S3API, bucket, prefix, cdnURL string) *S3Publisher {
	return &S3Publisher{
		client: client,
		bucket: bucket,
		prefix: prefix,
		cdnURL: cdnURL,
		format: "png",
		scale:  1,
		now:    time.Now,
	}
}

// NewFromConfig creates a publisher with static credentials against the
// configured endpoint, using path-style addressing for S3-compatible stores.
func NewFromConfig(cfg config.Config, prefix string) (*S3Publisher, error) {
	awsConfig := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Region:           aws.String(cfg.S3Region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.S3Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.S3Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}

	p := NewS3Publisher(s3.New(sess), cfg.S3Bucket, prefix, cfg.CDNURL)
	p.SetFormat(cfg.OutputFormat, cfg.Scale)
	return p, nil
}

// SetFormat selects the image format and upscale factor of uploaded frames
func (p *S3Publisher) SetFormat(format string, scale int) {
	if format != "" {
		p.format = format
	}
	if scale > 0 {
		p.scale = scale
	}
}

// Publish encodes img and uploads it together with a PNG thumbnail
func (p *S3Publisher) Publish(ctx context.Context, name string, img image.Image) (Upload, error) {
	var frameBuf bytes.Buffer
	if err := renderer.EncodeImage(&frameBuf, img, p.format, p.scale); err != nil {
		return Upload{}, err
	}

	stamp := p.now().UTC().Format("20060102_150405")
	key := path.Join(p.prefix, name, fmt.Sprintf("render_%s.%s", stamp, p.format))
	thumbKey := path.Join(p.prefix, name, fmt.Sprintf("render_%s_thumb.png", stamp))

	if err := p.put(ctx, key, frameBuf.Bytes(), ContentType(p.format)); err != nil {
		return Upload{}, err
	}

	var thumbBuf bytes.Buffer
	if err := png.Encode(&thumbBuf, Thumbnail(img)); err != nil {
		return Upload{}, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := p.put(ctx, thumbKey, thumbBuf.Bytes(), "image/png"); err != nil {
		return Upload{}, err
	}

	upload := Upload{Key: key, ThumbnailKey: thumbKey, URL: p.url(key), Bytes: frameBuf.Len()}
	core.Logger().Info("frame published", "bucket", p.bucket, "key", key, "bytes", upload.Bytes)
	return upload, nil
}

// PresentFunc returns a frame callback that publishes every presented frame under name
func (p *S3Publisher) PresentFunc(ctx context.Context, name string) frame.PresentFunc {
	return func(f *frame.Frame) error {
		_, err := p.Publish(ctx, name, f.Image())
		return err
	}
}

func (p *S3Publisher) put(ctx context.Context, key string, data []byte, mime string) error {
	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	_, err := p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mime),
		ACL:           aws.String("public-read"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (p *S3Publisher) url(key string) string {
	if p.cdnURL == "" {
		return fmt.Sprintf("s3://%s/%s", p.bucket, key)
	}
	return fmt.Sprintf("%s/%s", p.cdnURL, key)
}

// Thumbnail shrinks img to fit within ThumbnailSize on both sides, keeping
// the aspect ratio. Images already small enough are returned unchanged.
func Thumbnail(img image.Image) image.Image {
	return resize.Thumbnail(ThumbnailSize, ThumbnailSize, img, resize.Bilinear)
}

// ContentType returns the MIME type for an image format name
func ContentType(format string) string {
	switch format {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "bmp":
		return "image/bmp"
	case "gif":
		return "image/gif"
	case "tif", "tiff":
		return "image/tiff"
	default:
		return "image/png"
	}
}
