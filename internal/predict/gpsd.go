package predict

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/large-farva/skywindow/internal/window"
)

// tpvReport is the subset of a gpsd TPV JSON object we need.
type tpvReport struct {
	Class string  `json:"class"`
	Mode  int     `json:"mode"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Alt   float64 `json:"altMSL"`
}

// LocationFromGPSD connects to gpsd at the given host:port, sends a WATCH
// command, and reads TPV reports until a 2D or 3D fix is obtained.
func LocationFromGPSD(ctx context.Context, addr string, timeout time.Duration) (window.Observer, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return window.Observer{}, fmt.Errorf("gpsd connect: %w", err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return window.Observer{}, fmt.Errorf("gpsd set deadline: %w", err)
	}

	if _, err := fmt.Fprint(conn, `?WATCH={"enable":true,"json":true};`); err != nil {
		return window.Observer{}, fmt.Errorf("gpsd watch: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var report tpvReport
		if err := json.Unmarshal(scanner.Bytes(), &report); err != nil {
			continue
		}
		if report.Class != "TPV" || report.Mode < 2 {
			continue
		}
		obs := window.Observer{Latitude: report.Lat, Longitude: report.Lon}
		// Mode 2 fixes carry no usable altitude.
		if report.Mode >= 3 {
			obs.Altitude = report.Alt
		}
		if err := obs.Validate(); err != nil {
			return window.Observer{}, fmt.Errorf("gpsd fix: %w", err)
		}
		return obs, nil
	}

	if err := scanner.Err(); err != nil {
		return window.Observer{}, fmt.Errorf("gpsd read: %w", err)
	}

	return window.Observer{}, fmt.Errorf("gpsd: no fix obtained within %v", timeout)
}
