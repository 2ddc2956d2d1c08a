package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"absensi/internal/apperr"
	"absensi/internal/upload"
)

const imageKey = "upload.image"

// imageUpload validates the optional image part before the resource handler
// runs and stores the accepted header in the context.
func imageUpload(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := formImage(c)
		if err != nil {
			fail(c, err)
			return
		}
		if fh != nil {
			if err := upload.Validate(fh, maxBytes); err != nil {
				fail(c, err)
				return
			}
			c.Set(imageKey, fh)
		}
		c.Next()
	}
}

func formImage(c *gin.Context) (*multipart.FileHeader, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, err
		}
		return nil, apperr.Validation("invalid multipart form")
	}
	files := form.File[upload.FieldName]
	switch len(files) {
	case 0:
		return nil, nil
	case 1:
		return files[0], nil
	default:
		return nil, apperr.Validation("only one image file is allowed")
	}
}

// uploadedImage returns the header stored by imageUpload, or nil.
func uploadedImage(c *gin.Context) *multipart.FileHeader {
	v, ok := c.Get(imageKey)
	if !ok {
		return nil
	}
	fh, _ := v.(*multipart.FileHeader)
	return fh
}
