package thumbnail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/draw"
)

const (
	DefaultMaxWidth    = 320
	DefaultJPEGQuality = 80
)

// FFmpegCapturer captures frames by shelling out to ffmpeg
type FFmpegCapturer struct {
	binary   string
	maxWidth int
	quality  int
	timeout  time.Duration
}

// NewFFmpegCapturer creates a capturer. An empty binary means "ffmpeg" from PATH.
func NewFFmpegCapturer(binary string, timeout time.Duration) *FFmpegCapturer {
	if binary == "" {
		binary = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFmpegCapturer{
		binary:   binary,
		maxWidth: DefaultMaxWidth,
		quality:  DefaultJPEGQuality,
		timeout:  timeout,
	}
}

// Available reports whether the ffmpeg binary can be found
func (c *FFmpegCapturer) Available() bool {
	_, err := exec.LookPath(c.binary)
	return err == nil
}

// Capture decodes one frame at offset and returns it as a JPEG data URI
func (c *FFmpegCapturer) Capture(ctx context.Context, videoURL string, offset time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.FormatFloat(offset.Seconds(), 'f', 3, 64),
		"-i", videoURL,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1",
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg capture: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return "", errors.New("ffmpeg capture: no frame produced")
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return "", fmt.Errorf("failed to decode captured frame: %w", err)
	}

	return EncodeDataURI(img, c.maxWidth, c.quality)
}

// EncodeDataURI scales img down to maxWidth (keeping aspect ratio) and encodes
// it as a base64 JPEG data URI.
func EncodeDataURI(img image.Image, maxWidth, quality int) (string, error) {
	src := img.Bounds()
	if src.Dx() == 0 || src.Dy() == 0 {
		return "", errors.New("empty image")
	}

	if maxWidth > 0 && src.Dx() > maxWidth {
		height := max(1, src.Dy()*maxWidth/src.Dx())
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
