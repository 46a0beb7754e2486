package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"log"
	"os"
	"strings"
	"time"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"dicomcat/internal/extractor"
)

// dicomtool reads a DICOM file, extracts the catalog-relevant tags and a
// PNG preview of the first frame, and prints the result as a
// marker-delimited JSON block on stdout. All logging goes to stderr with an
// INFO: prefix; failures are written to stderr as JSON and exit non-zero.

var logger = log.New(os.Stderr, "INFO:dicomtool:", 0)

func main() {
	if len(os.Args) != 2 {
		fail("file path argument is required")
	}
	filePath := os.Args[1]

	logger.Printf("processing DICOM file: %s", filePath)

	ds, err := dicom.ParseFile(filePath, nil)
	if err != nil {
		fail(fmt.Sprintf("parse DICOM file: %v", err))
	}

	meta := extractor.Metadata{
		PatientName:       tagString(&ds, tag.PatientName, "Unknown"),
		StudyDate:         tagString(&ds, tag.StudyDate, time.Now().Format("20060102")),
		StudyDescription:  tagString(&ds, tag.StudyDescription, ""),
		SeriesDescription: tagString(&ds, tag.SeriesDescription, ""),
		Modality:          tagString(&ds, tag.Modality, "Unknown"),
	}

	img, err := renderPreview(&ds)
	if err != nil {
		fail(fmt.Sprintf("render preview: %v", err))
	}
	meta.Image = img

	payload, err := json.Marshal(meta)
	if err != nil {
		fail(fmt.Sprintf("encode metadata: %v", err))
	}

	logger.Printf("successfully processed DICOM file for patient: %s", meta.PatientName)

	fmt.Println("BEGIN_JSON_DATA")
	fmt.Println(string(payload))
	fmt.Println("END_JSON_DATA")
}

// tagString extracts the first string value for the given tag, falling back
// to def when the tag is absent or empty.
func tagString(ds *dicom.Dataset, t tag.Tag, def string) string {
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil {
		return def
	}
	vals := dicom.MustGetStrings(el.Value)
	if len(vals) == 0 {
		return def
	}
	if s := strings.TrimSpace(vals[0]); s != "" {
		return s
	}
	return def
}

// renderPreview converts the first pixel-data frame into a base64 PNG.
func renderPreview(ds *dicom.Dataset) (*extractor.Image, error) {
	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("no pixel data: %w", err)
	}

	info := dicom.MustGetPixelDataInfo(el.Value)
	if len(info.Frames) == 0 {
		return nil, fmt.Errorf("pixel data contains no frames")
	}

	img, err := info.Frames[0].GetImage()
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	bounds := img.Bounds()
	return &extractor.Image{
		Data:   base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

func fail(msg string) {
	out, _ := json.Marshal(map[string]string{"error": msg})
	fmt.Fprintln(os.Stderr, string(out))
	os.Exit(1)
}
