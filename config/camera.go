package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"go.viam.com/tapevision/camera"
)

// V4L2 control values the camera's shorthand settings map to.
const (
	exposureAuto     = 3
	exposureManual   = 1
	whiteBalanceAuto = 1
	whiteBalanceHold = 0
)

// Camera converts the entry into the camera package's config. Brightness, white balance and
// exposure become device controls ahead of the explicit properties, so a property can still
// override them.
func (cc CameraConfig) Camera() camera.Config {
	var props []camera.Property
	if cc.Brightness != nil {
		props = append(props, camera.Property{Name: "brightness", Value: *cc.Brightness})
	}
	props = append(props, shorthandProperties(cc.WhiteBalance,
		"white_balance_temperature_auto", whiteBalanceAuto, whiteBalanceHold, "white_balance_temperature")...)
	props = append(props, shorthandProperties(cc.Exposure,
		"exposure_auto", exposureAuto, exposureManual, "exposure_absolute")...)
	for _, p := range cc.Properties {
		props = append(props, camera.Property{Name: p.Name, Value: p.Value})
	}
	return camera.Config{
		Name:        cc.Name,
		Path:        cc.Path,
		Driver:      cc.Driver,
		Width:       cc.Width,
		Height:      cc.Height,
		FPS:         cc.FPS,
		PixelFormat: cc.PixelFormat,
		Properties:  props,
		Loop:        cc.Loop,
	}
}

// shorthandProperties expands "auto", "hold" or a number for a control with an automatic mode.
func shorthandProperties(setting, autoControl string, autoValue, holdValue int, valueControl string) []camera.Property {
	switch s := strings.ToLower(strings.TrimSpace(setting)); s {
	case "":
		return nil
	case "auto":
		return []camera.Property{{Name: autoControl, Value: autoValue}}
	case "hold":
		return []camera.Property{{Name: autoControl, Value: holdValue}}
	default:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil
		}
		return []camera.Property{{Name: autoControl, Value: holdValue}, {Name: valueControl, Value: n}}
	}
}

func validShorthand(setting string) bool {
	switch s := strings.ToLower(strings.TrimSpace(setting)); s {
	case "", "auto", "hold":
		return true
	default:
		_, err := strconv.Atoi(s)
		return err == nil
	}
}

// robotAddress is the robot controller's conventional address, 10.TE.AM.2.
func robotAddress(team int) string {
	return fmt.Sprintf("10.%d.%d.2", team/100, team%100)
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
