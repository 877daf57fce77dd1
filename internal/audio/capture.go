package audio

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
)

// Capture owns the microphone input device. The device runs for the lifetime
// of the daemon; captured chunks are handed to the onChunk callback, which is
// expected to discard them whenever no recording session is active. This
// keeps hotkey-press-to-first-sample latency at zero, since the device never
// has to be reopened per session.
type Capture struct {
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	onChunk func([]int16)
}

// NewCapture initializes the audio backend and opens the capture device.
// deviceName selects an input device by substring match; empty selects the
// system default.
func NewCapture(sampleRate int, deviceName string, onChunk func([]int16)) (*Capture, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)

	if deviceName != "" {
		id, err := findCaptureDevice(mctx, deviceName)
		if err != nil {
			_ = mctx.Uninit()
			return nil, err
		}
		deviceConfig.Capture.DeviceID = id.Pointer()
	}

	c := &Capture{ctx: mctx, onChunk: onChunk}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			if frameCount == 0 {
				return
			}
			c.onChunk(BytesToSamples(input))
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		return nil, fmt.Errorf("init capture device: %w", err)
	}
	c.device = device

	return c, nil
}

// Start begins delivering microphone chunks to the callback.
func (c *Capture) Start() error {
	if err := c.device.Start(); err != nil {
		return fmt.Errorf("start capture device: %w", err)
	}
	return nil
}

// Close stops the device and releases the audio backend.
func (c *Capture) Close() {
	if c.device != nil {
		c.device.Uninit()
	}
	if c.ctx != nil {
		_ = c.ctx.Uninit()
		c.ctx.Free()
	}
}

func findCaptureDevice(mctx *malgo.AllocatedContext, name string) (malgo.DeviceID, error) {
	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceID{}, fmt.Errorf("enumerate capture devices: %w", err)
	}
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(name)) {
			return info.ID, nil
		}
	}
	return malgo.DeviceID{}, fmt.Errorf("no capture device matching %q", name)
}
