//go:build !linux

package camera

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/tapevision/logging"
)

// NewV4L2 is only available on Linux.
func NewV4L2(ctx context.Context, conf Config, logger logging.Logger) (Source, error) {
	return nil, errors.New("v4l2 camera driver is only supported on linux, use the mediadevices driver")
}
