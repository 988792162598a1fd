// internal/img/cover.go
package img

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// GenerateCoverThumb loads a downloaded cover from srcPath, fits it into the
// given bounding box, and writes it to dstPath. If the source is smaller
// than the box, it will not upscale. Returns the thumbnail dimensions.
func GenerateCoverThumb(srcPath, dstPath string, boxW, boxH int) (w int, h int, _ error) {
	src, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return 0, 0, fmt.Errorf("open: %w", err)
	}

	thumb := imaging.Fit(src, boxW, boxH, imaging.Lanczos)

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return 0, 0, fmt.Errorf("mkdir: %w", err)
	}

	if err := imaging.Save(thumb, dstPath); err != nil {
		return 0, 0, fmt.Errorf("save: %w", err)
	}

	b := thumb.Bounds()
	return b.Dx(), b.Dy(), nil
}
