// Package encoder shapes cleaned images into response payloads.
package encoder

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"

	"github.com/klauspost/compress/zip"

	"github.com/yokitheyo/watermarkremover/internal/infrastructure/processor"
)

const (
	SingleFilename  = "cleaned.png"
	ArchiveFilename = "cleaned_images.zip"

	ContentTypePNG = "image/png"
	ContentTypeZIP = "application/zip"
)

var ErrNoImages = errors.New("no images to encode")

// File is a downloadable response body.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Base64 returns img as base64 encoded PNG bytes.
func Base64(img image.Image) (string, error) {
	data, err := processor.PNGBytes(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Base64All encodes every image, keeping the input order.
func Base64All(images []image.Image) ([]string, error) {
	out := make([]string, len(images))
	for i, img := range images {
		s, err := Base64(img)
		if err != nil {
			return nil, fmt.Errorf("encode image %d: %w", i+1, err)
		}
		out[i] = s
	}
	return out, nil
}

// ToFile returns a single PNG for one image and a ZIP archive with
// cleaned_1.png, cleaned_2.png, ... for more than one.
func ToFile(images []image.Image) (*File, error) {
	switch len(images) {
	case 0:
		return nil, ErrNoImages
	case 1:
		data, err := processor.PNGBytes(images[0])
		if err != nil {
			return nil, err
		}
		return &File{Name: SingleFilename, ContentType: ContentTypePNG, Data: data}, nil
	}

	data, err := Archive(images)
	if err != nil {
		return nil, err
	}
	return &File{Name: ArchiveFilename, ContentType: ContentTypeZIP, Data: data}, nil
}

// Archive zips images as cleaned_N.png entries, N starting at 1.
func Archive(images []image.Image) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	for i, img := range images {
		name := fmt.Sprintf("cleaned_%d.png", i+1)
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		if err := processor.EncodePNG(w, img); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}
