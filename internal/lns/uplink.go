package lns

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotUplink is returned for messages without an uplink_message object,
	// such as join accepts or downlink events on a wildcard subscription.
	ErrNotUplink = errors.New("message carries no uplink")
	// ErrMissingDevEUI is returned when end_device_ids.dev_eui is empty.
	ErrMissingDevEUI = errors.New("missing dev_eui")
	// ErrMissingPort is returned for uplinks without an application f_port.
	ErrMissingPort = errors.New("missing f_port")
)

// DeviceIDs identifies the end device an uplink came from.
type DeviceIDs struct {
	DeviceID       string         `json:"device_id"`
	DevEUI         string         `json:"dev_eui"`
	ApplicationIDs ApplicationIDs `json:"application_ids"`
}

// ApplicationIDs identifies the application a device belongs to.
type ApplicationIDs struct {
	ApplicationID string `json:"application_id"`
}

// RxMetadata is the per-gateway reception report.
type RxMetadata struct {
	GatewayIDs struct {
		GatewayID string `json:"gateway_id"`
	} `json:"gateway_ids"`
	RSSI float64 `json:"rssi"`
	SNR  float64 `json:"snr"`
}

// UplinkMessage is the application-level part of an uplink.
type UplinkMessage struct {
	FPort      *uint8       `json:"f_port"`
	FCnt       uint32       `json:"f_cnt"`
	FrmPayload []byte       `json:"frm_payload"` // base64 on the wire
	RxMetadata []RxMetadata `json:"rx_metadata,omitempty"`
	ReceivedAt *time.Time   `json:"received_at,omitempty"`
}

// Uplink is a The Things Stack v3 uplink event.
type Uplink struct {
	EndDeviceIDs    DeviceIDs      `json:"end_device_ids"`
	EventReceivedAt *time.Time     `json:"received_at,omitempty"`
	UplinkMessage   *UplinkMessage `json:"uplink_message"`
}

// ParseUplink decodes and validates an uplink event.
func ParseUplink(data []byte) (*Uplink, error) {
	var up Uplink
	if err := json.Unmarshal(data, &up); err != nil {
		return nil, fmt.Errorf("failed to parse uplink JSON: %w", err)
	}
	if up.UplinkMessage == nil {
		return nil, ErrNotUplink
	}
	if up.EndDeviceIDs.DevEUI == "" {
		return nil, ErrMissingDevEUI
	}
	if up.UplinkMessage.FPort == nil {
		return nil, ErrMissingPort
	}
	up.EndDeviceIDs.DevEUI = strings.ToUpper(up.EndDeviceIDs.DevEUI)
	return &up, nil
}

// DevEUI returns the upper-case device EUI.
func (u *Uplink) DevEUI() string {
	return u.EndDeviceIDs.DevEUI
}

// DeviceID returns the network server's device id.
func (u *Uplink) DeviceID() string {
	return u.EndDeviceIDs.DeviceID
}

// FPort returns the application port.
func (u *Uplink) FPort() uint8 {
	if u.UplinkMessage == nil || u.UplinkMessage.FPort == nil {
		return 0
	}
	return *u.UplinkMessage.FPort
}

// Payload returns the decoded frm_payload.
func (u *Uplink) Payload() []byte {
	if u.UplinkMessage == nil {
		return nil
	}
	return u.UplinkMessage.FrmPayload
}

// ReceivedAt returns the network server's receipt time, preferring the
// uplink_message timestamp, then the event timestamp, then the local clock.
func (u *Uplink) ReceivedAt() time.Time {
	if u.UplinkMessage != nil && u.UplinkMessage.ReceivedAt != nil && !u.UplinkMessage.ReceivedAt.IsZero() {
		return *u.UplinkMessage.ReceivedAt
	}
	if u.EventReceivedAt != nil && !u.EventReceivedAt.IsZero() {
		return *u.EventReceivedAt
	}
	return time.Now()
}

// BestRSSI returns the strongest gateway RSSI, or false without metadata.
func (u *Uplink) BestRSSI() (float64, bool) {
	if u.UplinkMessage == nil || len(u.UplinkMessage.RxMetadata) == 0 {
		return 0, false
	}
	best := u.UplinkMessage.RxMetadata[0].RSSI
	for _, md := range u.UplinkMessage.RxMetadata[1:] {
		if md.RSSI > best {
			best = md.RSSI
		}
	}
	return best, true
}
