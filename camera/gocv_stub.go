//go:build !gocv

package camera

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/tapevision/logging"
)

// NewGoCV needs OpenCV; build with -tags gocv to enable it.
func NewGoCV(ctx context.Context, conf Config, logger logging.Logger) (Source, error) {
	return nil, errors.New("gocv camera driver not available, rebuild with -tags gocv")
}
