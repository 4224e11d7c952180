package lns

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

const sampleUplink = `{
  "end_device_ids": {
    "device_id": "th-cellar",
    "application_ids": {"application_id": "cloudia"},
    "dev_eui": "70b3d57ed005a1b2"
  },
  "received_at": "2023-05-01T10:00:01Z",
  "uplink_message": {
    "f_port": 90,
    "f_cnt": 17,
    "frm_payload": "AHeUINLp7QI=",
    "rx_metadata": [
      {"gateway_ids": {"gateway_id": "gw-1"}, "rssi": -97, "snr": 4.5},
      {"gateway_ids": {"gateway_id": "gw-2"}, "rssi": -81, "snr": 9}
    ],
    "received_at": "2023-05-01T10:00:00Z"
  }
}`

func TestParseUplink(t *testing.T) {
	up, err := ParseUplink([]byte(sampleUplink))
	if err != nil {
		t.Fatalf("ParseUplink() error = %v", err)
	}

	if up.DevEUI() != "70B3D57ED005A1B2" {
		t.Errorf("DevEUI() = %q", up.DevEUI())
	}
	if up.DeviceID() != "th-cellar" {
		t.Errorf("DeviceID() = %q", up.DeviceID())
	}
	if up.FPort() != 90 {
		t.Errorf("FPort() = %d, want 90", up.FPort())
	}
	want := []byte{0x00, 0x77, 0x94, 0x20, 0xD2, 0xE9, 0xED, 0x02}
	if !bytes.Equal(up.Payload(), want) {
		t.Errorf("Payload() = % X, want % X", up.Payload(), want)
	}
	if got := up.ReceivedAt(); !got.Equal(time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("ReceivedAt() = %v, want uplink_message.received_at", got)
	}
	if rssi, ok := up.BestRSSI(); !ok || rssi != -81 {
		t.Errorf("BestRSSI() = %v, %v", rssi, ok)
	}
}

func TestParseUplinkErrors(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "malformed",
			json:    `{"end_device_ids":`,
			wantMsg: "failed to parse uplink JSON",
		},
		{
			name:    "join event",
			json:    `{"end_device_ids":{"dev_eui":"AA"},"join_accept":{}}`,
			wantErr: ErrNotUplink,
		},
		{
			name:    "no dev_eui",
			json:    `{"end_device_ids":{"device_id":"x"},"uplink_message":{"f_port":90}}`,
			wantErr: ErrMissingDevEUI,
		},
		{
			name:    "no f_port",
			json:    `{"end_device_ids":{"dev_eui":"AA"},"uplink_message":{"frm_payload":"AA=="}}`,
			wantErr: ErrMissingPort,
		},
		{
			name:    "bad base64",
			json:    `{"end_device_ids":{"dev_eui":"AA"},"uplink_message":{"f_port":90,"frm_payload":"!!"}}`,
			wantMsg: "failed to parse uplink JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUplink([]byte(tt.json))
			if err == nil {
				t.Fatal("ParseUplink() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseUplink() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("ParseUplink() error = %v, want containing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestReceivedAtFallback(t *testing.T) {
	up, err := ParseUplink([]byte(`{"end_device_ids":{"dev_eui":"aa"},"received_at":"2024-01-02T03:04:05Z","uplink_message":{"f_port":80}}`))
	if err != nil {
		t.Fatalf("ParseUplink() error = %v", err)
	}
	if got := up.ReceivedAt(); !got.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("ReceivedAt() = %v, want event received_at", got)
	}
	if _, ok := up.BestRSSI(); ok {
		t.Error("BestRSSI() ok without metadata")
	}

	up.EventReceivedAt = nil
	before := time.Now()
	if got := up.ReceivedAt(); got.Before(before) {
		t.Errorf("ReceivedAt() = %v, want local clock", got)
	}
}

func TestDownlinkPush(t *testing.T) {
	push := NewDownlinkPush([]byte{0x00, 0x00, 0x8A, 0x06})
	data, err := push.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"downlinks":[{"f_port":144,"frm_payload":"AACKBg==","priority":"NORMAL"}]}`
	if string(data) != want {
		t.Errorf("Marshal() = %s\nwant %s", data, want)
	}

	var back DownlinkPush
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !bytes.Equal(back.Downlinks[0].FrmPayload, push.Downlinks[0].FrmPayload) {
		t.Errorf("payload mismatch after decode: % X", back.Downlinks[0].FrmPayload)
	}
}

func TestTopics(t *testing.T) {
	if got := UplinkTopic("cloudia"); got != "v3/cloudia/devices/+/up" {
		t.Errorf("UplinkTopic() = %q", got)
	}
	if got := DownlinkTopic("cloudia", "th-cellar"); got != "v3/cloudia/devices/th-cellar/down/push" {
		t.Errorf("DownlinkTopic() = %q", got)
	}

	tests := []struct {
		topic  string
		device string
		ok     bool
	}{
		{"v3/cloudia/devices/th-cellar/up", "th-cellar", true},
		{"v3/app@ttn/devices/dev-1/down/push", "dev-1", true},
		{"v2/cloudia/devices/x/up", "", false},
		{"v3/cloudia/up", "", false},
	}
	for _, tt := range tests {
		device, ok := DeviceFromTopic(tt.topic)
		if device != tt.device || ok != tt.ok {
			t.Errorf("DeviceFromTopic(%q) = %q, %v", tt.topic, device, ok)
		}
	}
}
