package v1

import (
	"bytes"
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/fieldops/internal/upload"
)

type PhotoFiles struct {
	Photo huma.FormFile `form:"photo" required:"false" doc:"Image file"`
}

// UploadPhotoInput is a multipart form. Besides the photo part it carries
// the metadata fields (pjobid, pwoid, photoname, ...). Older clients send the
// image base64-encoded in a "body[data]" field, with "body[name]" and
// "body[type]"; the bare "data", "name" and "type" names are accepted too.
// One photo is stored per request.
type UploadPhotoInput struct {
	RawBody huma.MultipartFormFiles[PhotoFiles]
}

// RegisterPhotoRoutes mounts the job photo upload.
func RegisterPhotoRoutes(api huma.API, uploader PhotoUploader, opts Options) {
	huma.Register(api, huma.Operation{
		OperationID:   "upload-photo",
		Method:        http.MethodPost,
		Path:          "/photos",
		Summary:       "Upload a job photo",
		Tags:          []string{"Photos"},
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  opts.UploadMaxBytes,
	}, func(ctx context.Context, input *UploadPhotoInput) (*RecordOutput, error) {
		schema, err := tenantSchema(ctx)
		if err != nil {
			return nil, err
		}

		fields := map[string]string{}
		if form := input.RawBody.Form; form != nil {
			for k, vs := range form.Value {
				if len(vs) > 0 {
					fields[k] = vs[0]
				}
			}
		}

		var photo upload.Photo
		files := input.RawBody.Data()
		switch {
		case files != nil && files.Photo.IsSet:
			defer files.Photo.Close()
			photo = upload.Photo{
				Filename:    files.Photo.Filename,
				ContentType: files.Photo.ContentType,
				Body:        files.Photo,
				Fields:      fields,
			}
		case legacyField(fields, "data") != "":
			b, mediaType, err := upload.DecodeDataURL(legacyField(fields, "data"))
			if err != nil {
				return nil, storeError(err, "upload", "photo")
			}
			contentType := legacyField(fields, "type")
			if contentType == "" {
				contentType = mediaType
			}
			photo = upload.Photo{
				Filename:    legacyField(fields, "name"),
				ContentType: contentType,
				Body:        bytes.NewReader(b),
				Fields:      fields,
			}
		default:
			return nil, huma.Error400BadRequest("photo: photo file is required")
		}

		rec, err := uploader.Upload(ctx, schema, photo)
		if err != nil {
			return nil, storeError(err, "upload", "photo")
		}
		return &RecordOutput{Body: rec}, nil
	})
}

// legacyField reads a field of the base64 upload form, preferring the
// bracketed "body[...]" name.
func legacyField(fields map[string]string, name string) string {
	if v := fields["body["+name+"]"]; v != "" {
		return v
	}
	return fields[name]
}
