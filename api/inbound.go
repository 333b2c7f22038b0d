package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
)

func ocrJobPath(id, suffix string) string {
	return "/inbound/ocr-jobs/" + url.PathEscape(id) + suffix
}

// CreateOCRJob uploads an invoice document for recognition.
func (c *Client) CreateOCRJob(ctx context.Context, token, fileName string, file io.Reader) (OCRJob, error) {
	fileName = filepath.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." || file == nil {
		return OCRJob{}, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return OCRJob{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return OCRJob{}, fmt.Errorf("%w: reading upload: %v", ErrInvalidInput, err)
	}
	if err := mw.Close(); err != nil {
		return OCRJob{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var out OCRJob
	err = c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        "/inbound/ocr-jobs",
		RawBody:     &buf,
		ContentType: mw.FormDataContentType(),
		Token:       token,
		RequireAuth: true,
	}, &out)
	return out, err
}

func (c *Client) GetOCRJob(ctx context.Context, token, id string) (OCRJob, error) {
	var out OCRJob
	err := c.Do(ctx, Request{Path: ocrJobPath(id, ""), Token: token, RequireAuth: true}, &out)
	return out, err
}

// ConfirmOCRJob turns a recognized job into a SKU and its assets.
func (c *Client) ConfirmOCRJob(ctx context.Context, token, id string, req ConfirmOCRRequest) (ConfirmOCRResult, error) {
	if len(req.SNs) == 0 {
		return ConfirmOCRResult{}, fmt.Errorf("%w: at least one serial number is required", ErrInvalidInput)
	}
	var out ConfirmOCRResult
	err := c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        ocrJobPath(id, "/confirm"),
		Body:        req,
		Token:       token,
		RequireAuth: true,
	}, &out)
	return out, err
}
