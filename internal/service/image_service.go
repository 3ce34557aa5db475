package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/gif" // Register GIF decoder
	_ "image/png" // Register PNG decoder
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"blogicum/internal/config"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/observability"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaDir             = "media"
	DefaultImageMaxUploadSizeMB = 10
	MasterMaxSize               = 2048
	MaxImagePixels              = 40_000_000
	JPEGQuality                 = 82
	WebPQuality                 = 70
)

var allowedRatios = []struct {
	name  string
	ratio float64
}{
	{name: "landscape", ratio: 1.91},
	{name: "square", ratio: 1.0},
	{name: "portrait", ratio: 0.8},
}

// ImageUpload is a file submitted with a post form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageStore persists post images and returns the key stored on the post.
type ImageStore interface {
	Save(ctx context.Context, in ImageUpload) (string, error)
}

// ImageService normalizes uploads and writes them under the media
// directory as <sha256>/master.jpg and <sha256>/master.webp.
type ImageService struct {
	mediaDir           string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	mediaDir := DefaultMediaDir
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.MediaDir != "" {
			mediaDir = cfg.MediaDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &ImageService{
		mediaDir:           mediaDir,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// MediaDir is the directory served under /media/.
func (s *ImageService) MediaDir() string {
	return s.mediaDir
}

func imageFieldError(msg string) error {
	return models.NewFieldValidationError(models.FieldErrors{"image": msg})
}

// Save validates, crops, resizes and stores the upload. Identical images
// map to the same key and are written once.
func (s *ImageService) Save(ctx context.Context, in ImageUpload) (string, error) {
	_, span := observability.StartSpan(ctx, "image", "save")
	defer span.End()
	started := time.Now()
	defer func() {
		observability.ImageProcessingDuration.Observe(time.Since(started).Seconds())
	}()

	if len(in.Content) == 0 {
		return "", imageFieldError("The submitted file is empty.")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return "", imageFieldError(fmt.Sprintf("File too large (max %dMB).", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return "", imageFieldError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	// The header is read first: a small compressed file can declare a
	// canvas far larger than memory.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return "", imageFieldError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return "", imageFieldError(fmt.Sprintf("Image dimensions too large (max %d megapixels).", MaxImagePixels/1_000_000))
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil || !isSupportedDecodedFormat(format) {
		return "", imageFieldError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, decodedFormatToMime(format)) {
		return "", imageFieldError("Image content type mismatch.")
	}

	b := decoded.Bounds()
	cropX, cropY, cropW, cropH := selectCrop(b.Dx(), b.Dy())
	cropped := cropToRect(decoded, b.Min.X+cropX, b.Min.Y+cropY, cropW, cropH)
	master := resizeToFit(cropped, MasterMaxSize, MasterMaxSize)

	encodedJPG, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		span.SetError(err)
		return "", models.NewInternalError(err)
	}
	sum := sha256.Sum256(encodedJPG)
	hash := hex.EncodeToString(sum[:])

	jpgPath := filepath.Join(s.mediaDir, hash, "master.jpg")
	webpPath := filepath.Join(s.mediaDir, hash, "master.webp")
	if fileExists(jpgPath) && fileExists(webpPath) {
		return hash, nil
	}

	encodedWebP, err := encodeWebP(master, WebPQuality)
	if err != nil {
		span.SetError(err)
		return "", models.NewInternalError(err)
	}
	if err := writeBytesToFile(jpgPath, encodedJPG); err != nil {
		span.SetError(err)
		return "", models.NewInternalError(err)
	}
	if err := writeBytesToFile(webpPath, encodedWebP); err != nil {
		_ = os.Remove(jpgPath)
		span.SetError(err)
		return "", models.NewInternalError(err)
	}

	mb := master.Bounds()
	middleware.Logger.InfoContext(ctx, "image stored",
		slog.String("hash", hash),
		slog.String("filename", in.Filename),
		slog.Int("width", mb.Dx()),
		slog.Int("height", mb.Dy()),
	)
	return hash, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func selectCrop(w, h int) (cropX, cropY, cropW, cropH int) {
	if w <= 0 || h <= 0 {
		return 0, 0, w, h
	}
	ratio := float64(w) / float64(h)
	bestRatio := 1.0
	bestDist := absFloat(ratio - 1.0)
	for _, r := range allowedRatios {
		d := absFloat(ratio - r.ratio)
		if d < bestDist {
			bestDist = d
			bestRatio = r.ratio
		}
	}

	if ratio > bestRatio {
		cropH = h
		cropW = int(float64(h) * bestRatio)
		cropX = (w - cropW) / 2
		cropY = 0
	} else {
		cropW = w
		cropH = int(float64(w) / bestRatio)
		cropX = 0
		cropY = (h - cropH) / 2
	}
	if cropW < 1 {
		cropW = 1
	}
	if cropH < 1 {
		cropH = 1
	}
	return cropX, cropY, cropW, cropH
}

func cropToRect(src image.Image, x, y, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
