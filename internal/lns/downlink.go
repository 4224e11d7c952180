package lns

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ConfigPort is the application port the sensor listens on for
// configuration downlinks.
const ConfigPort uint8 = 144

// Downlink priorities accepted by The Things Stack.
const (
	PriorityLowest  = "LOWEST"
	PriorityLow     = "LOW"
	PriorityNormal  = "NORMAL"
	PriorityHigh    = "HIGH"
	PriorityHighest = "HIGHEST"
)

// Downlink is one queued downlink frame.
type Downlink struct {
	FPort      uint8  `json:"f_port"`
	FrmPayload []byte `json:"frm_payload"` // base64 on the wire
	Priority   string `json:"priority"`
}

// DownlinkPush is the document published to a device's down/push topic.
type DownlinkPush struct {
	Downlinks []Downlink `json:"downlinks"`
}

// NewDownlinkPush wraps payload in a single NORMAL priority downlink on
// ConfigPort.
func NewDownlinkPush(payload []byte) *DownlinkPush {
	return &DownlinkPush{
		Downlinks: []Downlink{{
			FPort:      ConfigPort,
			FrmPayload: append([]byte(nil), payload...),
			Priority:   PriorityNormal,
		}},
	}
}

// Marshal encodes the push document as JSON.
func (p *DownlinkPush) Marshal() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode downlink: %w", err)
	}
	return data, nil
}

// UplinkTopic returns the wildcard topic carrying every device's uplinks.
func UplinkTopic(appID string) string {
	return fmt.Sprintf("v3/%s/devices/+/up", appID)
}

// DownlinkTopic returns the topic used to queue downlinks for one device.
func DownlinkTopic(appID, deviceID string) string {
	return fmt.Sprintf("v3/%s/devices/%s/down/push", appID, deviceID)
}

// DeviceFromTopic extracts the device id from a v3 device topic.
func DeviceFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 5 || parts[0] != "v3" || parts[2] != "devices" {
		return "", false
	}
	return parts[3], true
}
