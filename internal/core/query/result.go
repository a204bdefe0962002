package query

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// Well-known message ids.
const (
	MsgLocation uint16 = 0x0200
	MsgCANData  uint16 = 0x0705
)

// RawMsg is one logged packet as returned by the raw endpoint.
type RawMsg struct {
	Timestamp time.Time `json:"timestamp"`
	Raw       []byte    `json:"raw"`
	TX        bool      `json:"tx"`
	DS        uint8     `json:"ds"`
	SN        uint32    `json:"sn"`
	MsgID     uint16    `json:"msgId"`
	MsgSN     uint16    `json:"msgSn"`
	Version   int16     `json:"version"`
	Encrypted bool      `json:"encrypted"`
	PartTotal uint16    `json:"partTotal"`
	PartIndex uint16    `json:"partIndex"`
	Warnings  []string  `json:"warnings"`
}

// Direction returns "tx" for packets sent to the terminal, "rx" otherwise.
func (m RawMsg) Direction() string {
	if m.TX {
		return "tx"
	}
	return "rx"
}

// RawResult is the raw endpoint payload. MsgIDs lists every message id seen
// in the time window before the id/direction filters were applied.
type RawResult struct {
	Msgs   []RawMsg `json:"msgs"`
	MsgIDs []uint16 `json:"msgIds"`
}

// SeenIDs returns the distinct message ids in the window, sorted.
func (r RawResult) SeenIDs() []uint16 {
	set := mapset.NewThreadUnsafeSet(r.MsgIDs...)
	ids := set.ToSlice()
	slices.Sort(ids)
	return ids
}

// Body is a decoded message body.
type Body interface {
	Header() BodyBase
}

// BodyBase carries the fields every body shares.
type BodyBase struct {
	Timestamp time.Time `json:"timestamp"`
	Warnings  []string  `json:"warnings"`
}

func (b BodyBase) Header() BodyBase { return b }

// UnknownBody is a body of a message id without a dedicated decoder.
type UnknownBody struct {
	BodyBase
	Data []byte `json:"data"`
}

// LocationBody is a 0x0200 location report.
type LocationBody struct {
	BodyBase
	Alarm     uint32    `json:"alarm"`
	Status    uint32    `json:"status"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  uint16    `json:"altitude"`
	Speed     float64   `json:"speed"`
	Direction uint16    `json:"direction"`
	Time      time.Time `json:"time"`
	ExtInfo   []ExtInfo `json:"extInfo"`
	Mileage   float64   `json:"mileage"`
}

// ExtInfo is one additional information item of a location report.
type ExtInfo struct {
	ID   uint8  `json:"id"`
	Data []byte `json:"data"`
}

// ExtIDs returns the set of extra info ids present in the report.
func (b LocationBody) ExtIDs() mapset.Set[uint8] {
	set := mapset.NewThreadUnsafeSet[uint8]()
	for _, e := range b.ExtInfo {
		set.Add(e.ID)
	}
	return set
}

// CANBody is a 0x0705 CAN bus data upload.
type CANBody struct {
	BodyBase
	Count uint16    `json:"count"`
	Time  time.Time `json:"time"`
	Items []CANItem `json:"items"`
}

// CANItem is one CAN frame of a CAN data upload.
type CANItem struct {
	ID    uint32 `json:"id"`
	Flags uint8  `json:"flags"`
	Data  []byte `json:"data"`
}

// DecodeBodies decodes the body endpoint payload for msgID.
func DecodeBodies(msgID uint16, raws []json.RawMessage) ([]Body, error) {
	out := make([]Body, 0, len(raws))
	for i, raw := range raws {
		b, err := decodeBody(msgID, raw)
		if err != nil {
			return nil, fmt.Errorf("decode body %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func decodeBody(msgID uint16, raw json.RawMessage) (Body, error) {
	switch msgID {
	case MsgLocation:
		var b LocationBody
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	case MsgCANData:
		var b CANBody
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	default:
		var b UnknownBody
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	}
}

// FilterExtIDs keeps location bodies carrying at least one of ids. Bodies of
// other types and an empty id set pass through unchanged.
func FilterExtIDs(bodies []Body, ids mapset.Set[uint8]) []Body {
	if ids == nil || ids.Cardinality() == 0 {
		return bodies
	}
	out := make([]Body, 0, len(bodies))
	for _, b := range bodies {
		loc, ok := b.(LocationBody)
		if !ok || loc.ExtIDs().ContainsAnyElement(ids) {
			out = append(out, b)
		}
	}
	return out
}
