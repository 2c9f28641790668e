package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/fieldops/internal/domain"
	"github.com/gosuda/fieldops/internal/metrics"
	"github.com/gosuda/fieldops/internal/storage"
)

// ErrUploadFailed is the single error callers see when the object could not
// be stored, whether or not the metadata rollback succeeded.
var ErrUploadFailed = errors.New("failed to upload photo")

const photoNameMax = 6

var subtypePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.+-]*$`)

// Metadata keys accepted from the client. photoext, photodts and photoorder
// are always computed.
var allowedFields = map[string]bool{
	"pjobid":     true,
	"pwoid":      true,
	"pwotype":    true,
	"puser":      true,
	"photoname":  true,
	"photolabel": true,
	"phototags":  true,
	"photoidcc":  true,
	"photodtscc": true,
	"photoreq":   true,
	"photonotes": true,
}

var integerFields = map[string]bool{
	"pjobid": true,
	"pwoid":  true,
	"puser":  true,
}

// PhotoStore persists photo metadata rows.
type PhotoStore interface {
	Insert(ctx context.Context, schema string, rec domain.Record) (domain.Record, error)
	Delete(ctx context.Context, schema string, id int64) error
}

// Photo is one uploaded image with its form fields.
type Photo struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Fields      map[string]string
}

type Uploader struct {
	photos  PhotoStore
	objects storage.Storage
	timeout time.Duration
	now     func() time.Time
}

func NewUploader(photos PhotoStore, objects storage.Storage, timeout time.Duration) *Uploader {
	return &Uploader{photos: photos, objects: objects, timeout: timeout, now: time.Now}
}

// Upload records the metadata row, then stores the object. If the object
// cannot be stored the row is deleted again and ErrUploadFailed is returned.
func (u *Uploader) Upload(ctx context.Context, schema string, p Photo) (domain.Record, error) {
	rec, contentType, err := u.metadata(p)
	if err != nil {
		return nil, fmt.Errorf("upload.Upload: %w", err)
	}

	row, err := u.photos.Insert(ctx, schema, rec)
	if err != nil {
		return nil, fmt.Errorf("upload.Upload: insert metadata: %w", err)
	}
	photoID, ok := row.Int64(domain.Photos.PrimaryKey)
	if !ok {
		return nil, fmt.Errorf("upload.Upload: inserted row has no %s", domain.Photos.PrimaryKey)
	}

	ext, _ := rec.String(domain.PhotoExtColumn)
	key := ObjectKey(schema, photoID, uuid.NewString(), ext)

	putErr := u.put(ctx, key, contentType, p.Body)
	if putErr == nil {
		return row, nil
	}

	// The request context may already be done; the rollback gets its own.
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.bound())
	defer cancel()

	if err := u.photos.Delete(delCtx, schema, photoID); err != nil {
		metrics.Compensation(false)
		log.Error().Err(err).AnErr("put_error", putErr).
			Str("schema", schema).Int64("photoid", photoID).
			Msg("upload: metadata rollback failed")
	} else {
		metrics.Compensation(true)
		log.Warn().Err(putErr).Str("schema", schema).Int64("photoid", photoID).
			Msg("upload: object put failed, metadata rolled back")
	}

	return nil, fmt.Errorf("upload.Upload: %w", errors.Join(ErrUploadFailed, putErr))
}

func (u *Uploader) put(ctx context.Context, key, contentType string, body io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, u.bound())
	defer cancel()
	return u.objects.Put(ctx, key, contentType, body)
}

func (u *Uploader) bound() time.Duration {
	if u.timeout <= 0 {
		return 30 * time.Second
	}
	return u.timeout
}

func (u *Uploader) metadata(p Photo) (domain.Record, string, error) {
	if p.Body == nil {
		return nil, "", domain.Invalid("photo", "photo file is required")
	}

	contentType, ext, err := mimeParts(p.ContentType)
	if err != nil {
		return nil, "", err
	}

	rec := domain.Record{}
	for k, v := range p.Fields {
		if !allowedFields[k] || v == "" {
			continue
		}
		if integerFields[k] {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, "", domain.Invalid(k, "must be an integer")
			}
			rec[k] = n
			continue
		}
		rec[k] = v
	}

	name, _ := rec.String(domain.PhotoNameColumn)
	if name == "" {
		base := path.Base(strings.ReplaceAll(p.Filename, `\`, "/"))
		name = strings.TrimSuffix(base, path.Ext(base))
	}
	if name == "" || name == "." || name == "/" {
		name = "photo"
	}
	rec[domain.PhotoNameColumn] = truncate(name, photoNameMax)
	rec[domain.PhotoExtColumn] = ext
	rec[domain.PhotoTimestampColumn] = u.now().Format(time.RFC3339)

	return rec, contentType, nil
}

// mimeParts returns the media type and its subtype, which is used as the
// stored file extension.
func mimeParts(contentType string) (string, string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", "", domain.Invalid("photo", "invalid content type %q", contentType)
	}
	_, sub, ok := strings.Cut(mt, "/")
	if !ok || !subtypePattern.MatchString(sub) {
		return "", "", domain.Invalid("photo", "invalid content type %q", contentType)
	}
	return mt, sub, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ObjectKey is the storage key for a photo: <schema>/photos/<id>-<nonce>.<ext>.
func ObjectKey(schema string, photoID int64, nonce, ext string) string {
	return schema + "/photos/" + strconv.FormatInt(photoID, 10) + "-" + nonce + "." + ext
}

// DecodeDataURL accepts either a data: URL or bare base64 and returns the
// decoded bytes and, for data URLs, the declared media type.
func DecodeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var mediaType string
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", domain.Invalid("data", "malformed data URL")
		}
		mediaType = strings.TrimSuffix(header, ";base64")
		s = payload
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", domain.Invalid("data", "invalid base64 payload")
	}
	return b, mediaType, nil
}
