package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

const segmentOffsetFormat = "%020d"

// S3API — подмножество клиента S3, которое использует S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds configuration for the S3 artifact backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom endpoint for S3-compatible providers (MinIO, R2).
	Endpoint string
	// UsePathStyle forces path-style addressing.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// NewS3Client создаёт клиент S3 через стандартную цепочку кредов AWS.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

// S3Store хранит артефакт как последовательность объектов-сегментов
// `<prefix><name>/<offset>`: каждый успешный чанк становится отдельным объектом.
// Длина артефакта — сумма размеров непрерывной цепочки сегментов.
type S3Store struct {
	api    S3API
	bucket string
	prefix string
}

// NewS3Store создаёт хранилище поверх готового S3-клиента.
func NewS3Store(api S3API, cfg S3Config) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{api: api, bucket: cfg.Bucket, prefix: prefix}, nil
}

type segment struct {
	key    string
	offset int64
	size   int64
}

func (s *S3Store) namePrefix(name string) string {
	return s.prefix + name + "/"
}

func (s *S3Store) segments(ctx context.Context, name string) ([]segment, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	prefix := s.namePrefix(name)
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var out []segment
	var next int64
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, failure("list segments", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			offset, err := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64)
			if err != nil {
				continue
			}
			// Ключи отсортированы лексикографически, а смещения дополнены нулями.
			if offset != next {
				return nil, failure("list segments", fmt.Errorf("gap in %s at offset %d", name, next))
			}
			size := aws.ToInt64(obj.Size)
			out = append(out, segment{key: key, offset: offset, size: size})
			next += size
		}
	}

	return out, nil
}

func (s *S3Store) Length(ctx context.Context, name string) (int64, error) {
	segs, err := s.segments(ctx, name)
	if err != nil {
		return 0, err
	}
	if len(segs) == 0 {
		return 0, notFound(name)
	}
	last := segs[len(segs)-1]
	return last.offset + last.size, nil
}

func (s *S3Store) AppendAt(ctx context.Context, name string, offset int64, data []byte) (int64, error) {
	current, err := s.Length(ctx, name)
	if err != nil && !errors.Is(err, transferproto.ErrNotFound) {
		return 0, err
	}
	if current != offset {
		return 0, conflict(offset, current)
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.namePrefix(name) + fmt.Sprintf(segmentOffsetFormat, offset)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(transferproto.ContentTypeOctetStream),
	})
	if err != nil {
		return 0, failure("put segment", err)
	}

	return offset + int64(len(data)), nil
}

func (s *S3Store) ReadRange(ctx context.Context, name string, start, end int64) (io.ReadCloser, error) {
	segs, err := s.segments(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, notFound(name)
	}

	var pieces []segmentPiece
	for _, seg := range segs {
		segEnd := seg.offset + seg.size - 1
		if segEnd < start || seg.offset > end {
			continue
		}
		pieces = append(pieces, segmentPiece{
			key:  seg.key,
			from: max(start, seg.offset) - seg.offset,
			to:   min(end, segEnd) - seg.offset,
		})
	}

	return &segmentReader{ctx: ctx, store: s, pieces: pieces}, nil
}

func (s *S3Store) Delete(ctx context.Context, name string) error {
	segs, err := s.segments(ctx, name)
	if err != nil {
		return err
	}
	for _, seg := range segs {
		if _, err = s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(seg.key),
		}); err != nil {
			return failure("delete segment", err)
		}
	}
	return nil
}

type segmentPiece struct {
	key      string
	from, to int64
}

// segmentReader последовательно открывает нужные сегменты с заголовком Range.
type segmentReader struct {
	ctx    context.Context
	store  *S3Store
	pieces []segmentPiece
	cur    io.ReadCloser
}

func (r *segmentReader) Read(p []byte) (int, error) {
	for {
		if r.cur == nil {
			if len(r.pieces) == 0 {
				return 0, io.EOF
			}
			piece := r.pieces[0]
			r.pieces = r.pieces[1:]
			out, err := r.store.api.GetObject(r.ctx, &s3.GetObjectInput{
				Bucket: aws.String(r.store.bucket),
				Key:    aws.String(piece.key),
				Range:  aws.String(transferproto.RangeSpec{Start: piece.from, End: piece.to}.String()),
			})
			if err != nil {
				return 0, failure("get segment", err)
			}
			r.cur = out.Body
		}

		n, err := r.cur.Read(p)
		if errors.Is(err, io.EOF) {
			_ = r.cur.Close()
			r.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (r *segmentReader) Close() error {
	if r.cur != nil {
		err := r.cur.Close()
		r.cur = nil
		return err
	}
	return nil
}
