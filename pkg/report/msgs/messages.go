// Package msgs defines the messages published by trackers.
package msgs

import (
	"encoding/json"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"
	"github.com/golang/protobuf/ptypes/timestamp"
)

// UnitsPerKm converts the odometer into kilometers.
const UnitsPerKm = 3600

// OdometerReport is published for every periodic report.
type OdometerReport struct {
	UnitID     string               `protobuf:"bytes,1,opt,name=unit_id,proto3" json:"unit_id,omitempty"`
	VehicleID  string               `protobuf:"bytes,2,opt,name=vehicle_id,proto3" json:"vehicle_id,omitempty"`
	Odometer   int64                `protobuf:"varint,3,opt,name=odometer,proto3" json:"odometer,omitempty"`
	Kilometers int64                `protobuf:"varint,4,opt,name=kilometers,proto3" json:"kilometers,omitempty"`
	Time       *timestamp.Timestamp `protobuf:"bytes,5,opt,name=time,proto3" json:"time,omitempty"`
}

// NewOdometerReport creates an OdometerReport.
func NewOdometerReport(unitID, vehicleID string, odometer int64, at time.Time) (*OdometerReport, error) {
	ts, err := ptypes.TimestampProto(at)
	if err != nil {
		return nil, err
	}
	return &OdometerReport{
		UnitID:     unitID,
		VehicleID:  vehicleID,
		Odometer:   odometer,
		Kilometers: odometer / UnitsPerKm,
		Time:       ts,
	}, nil
}

// ProtoMessage implements proto.Message.
func (m *OdometerReport) ProtoMessage() {}

// Reset implements proto.Message.
func (m *OdometerReport) Reset() { *m = OdometerReport{} }

// String implements proto.Message.
func (m *OdometerReport) String() string { return proto.CompactTextString(m) }

// Encode serializes the report.
func (m *OdometerReport) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// ReportTime returns the report time, zero if absent.
func (m *OdometerReport) ReportTime() time.Time {
	if m.Time == nil {
		return time.Time{}
	}
	t, err := ptypes.Timestamp(m.Time)
	if err != nil {
		return time.Time{}
	}
	return t
}

// DecodeOdometerReport parses a serialized report.
func DecodeOdometerReport(data []byte) (*OdometerReport, error) {
	var m OdometerReport
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UnitMeta is the retained description of an online unit.
type UnitMeta struct {
	UnitID      string `json:"unit_id"`
	VehicleID   string `json:"vehicle_id"`
	Description string `json:"description,omitempty"`
}

// Encode serializes the meta in JSON.
func (m *UnitMeta) Encode() []byte {
	data, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return data
}
