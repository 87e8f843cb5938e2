// Copyright 2023 The CubeFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package proto

import (
	"google.golang.org/protobuf/encoding/protowire"
)

type SealOp struct {
	Epoch uint64
}

func (m *SealOp) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint64(b, 1, m.Epoch)
	return b, nil
}

func (m *SealOp) Unmarshal(b []byte) error {
	*m = SealOp{}
	var seen fieldSet
	err := consumeFields("SealOp", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeUint64(typ, b, &m.Epoch)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("SealOp", 1)
}

// ReadOp is the read request.
type ReadOp struct {
	Epoch    uint64
	Position uint64
}

func (m *ReadOp) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint64(b, 1, m.Epoch)
	b = appendUint64(b, 2, m.Position)
	return b, nil
}

func (m *ReadOp) Unmarshal(b []byte) error {
	*m = ReadOp{}
	var seen fieldSet
	err := consumeFields("ReadOp", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeUint64(typ, b, &m.Epoch)
		case 2:
			seen.set(num)
			return consumeUint64(typ, b, &m.Position)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("ReadOp", 1, 2)
}

type ReadReply struct {
	Data []byte
}

func (m *ReadReply) Marshal() ([]byte, error) {
	var b []byte
	b = appendBytes(b, 1, m.Data)
	return b, nil
}

func (m *ReadReply) Unmarshal(b []byte) error {
	*m = ReadReply{}
	var seen fieldSet
	err := consumeFields("ReadReply", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeBytes(typ, b, &m.Data)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("ReadReply", 1)
}

// WriteOp is the write request.
type WriteOp struct {
	Epoch    uint64
	Position uint64
	Data     []byte
}

func (m *WriteOp) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint64(b, 1, m.Epoch)
	b = appendUint64(b, 2, m.Position)
	b = appendBytes(b, 3, m.Data)
	return b, nil
}

func (m *WriteOp) Unmarshal(b []byte) error {
	*m = WriteOp{}
	var seen fieldSet
	err := consumeFields("WriteOp", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeUint64(typ, b, &m.Epoch)
		case 2:
			seen.set(num)
			return consumeUint64(typ, b, &m.Position)
		case 3:
			seen.set(num)
			return consumeBytes(typ, b, &m.Data)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("WriteOp", 1, 2, 3)
}

type FillOp struct {
	Epoch    uint64
	Position uint64
}

func (m *FillOp) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint64(b, 1, m.Epoch)
	b = appendUint64(b, 2, m.Position)
	return b, nil
}

func (m *FillOp) Unmarshal(b []byte) error {
	*m = FillOp{}
	var seen fieldSet
	err := consumeFields("FillOp", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeUint64(typ, b, &m.Epoch)
		case 2:
			seen.set(num)
			return consumeUint64(typ, b, &m.Position)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("FillOp", 1, 2)
}

type TrimOp struct {
	Epoch    uint64
	Position uint64
}

func (m *TrimOp) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint64(b, 1, m.Epoch)
	b = appendUint64(b, 2, m.Position)
	return b, nil
}

func (m *TrimOp) Unmarshal(b []byte) error {
	*m = TrimOp{}
	var seen fieldSet
	err := consumeFields("TrimOp", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeUint64(typ, b, &m.Epoch)
		case 2:
			seen.set(num)
			return consumeUint64(typ, b, &m.Position)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("TrimOp", 1, 2)
}

// InvalidateOp is the invalidate request.
type InvalidateOp struct {
	Position uint64
	Force    bool
}

func (m *InvalidateOp) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint64(b, 1, m.Position)
	b = appendBool(b, 2, m.Force)
	return b, nil
}

func (m *InvalidateOp) Unmarshal(b []byte) error {
	*m = InvalidateOp{}
	var seen fieldSet
	err := consumeFields("InvalidateOp", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeUint64(typ, b, &m.Position)
		case 2:
			seen.set(num)
			return consumeBool(typ, b, &m.Force)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("InvalidateOp", 1, 2)
}

type MaxPositionOp struct {
	Epoch uint64
}

func (m *MaxPositionOp) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint64(b, 1, m.Epoch)
	return b, nil
}

func (m *MaxPositionOp) Unmarshal(b []byte) error {
	*m = MaxPositionOp{}
	var seen fieldSet
	err := consumeFields("MaxPositionOp", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeUint64(typ, b, &m.Epoch)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("MaxPositionOp", 1)
}

type MaxPositionReply struct {
	Position uint64
}

func (m *MaxPositionReply) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint64(b, 1, m.Position)
	return b, nil
}

func (m *MaxPositionReply) Unmarshal(b []byte) error {
	*m = MaxPositionReply{}
	var seen fieldSet
	err := consumeFields("MaxPositionReply", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeUint64(typ, b, &m.Position)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("MaxPositionReply", 1)
}

// SetProjectionOp is the set_projection request.
type SetProjectionOp struct {
	Epoch uint64
	Data  []byte
}

func (m *SetProjectionOp) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint64(b, 1, m.Epoch)
	b = appendBytes(b, 2, m.Data)
	return b, nil
}

func (m *SetProjectionOp) Unmarshal(b []byte) error {
	*m = SetProjectionOp{}
	var seen fieldSet
	err := consumeFields("SetProjectionOp", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeUint64(typ, b, &m.Epoch)
		case 2:
			seen.set(num)
			return consumeBytes(typ, b, &m.Data)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("SetProjectionOp", 1, 2)
}

// GetProjectionOp asks for the projection of Epoch, or for the latest
// one when Latest is set.
type GetProjectionOp struct {
	Epoch  uint64
	Latest bool
}

func (m *GetProjectionOp) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint64(b, 1, m.Epoch)
	b = appendBool(b, 2, m.Latest)
	return b, nil
}

func (m *GetProjectionOp) Unmarshal(b []byte) error {
	*m = GetProjectionOp{}
	var seen fieldSet
	err := consumeFields("GetProjectionOp", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeUint64(typ, b, &m.Epoch)
		case 2:
			seen.set(num)
			return consumeBool(typ, b, &m.Latest)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("GetProjectionOp", 1, 2)
}

type GetProjectionReply struct {
	Epoch uint64
	Data  []byte
}

func (m *GetProjectionReply) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint64(b, 1, m.Epoch)
	b = appendBytes(b, 2, m.Data)
	return b, nil
}

func (m *GetProjectionReply) Unmarshal(b []byte) error {
	*m = GetProjectionReply{}
	var seen fieldSet
	err := consumeFields("GetProjectionReply", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeUint64(typ, b, &m.Epoch)
		case 2:
			seen.set(num)
			return consumeBytes(typ, b, &m.Data)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("GetProjectionReply", 1, 2)
}

// StripeParams describes how log positions map onto striped objects.
type StripeParams struct {
	EntrySize        uint32
	StripeWidth      uint32
	EntriesPerObject uint32
}

func (m *StripeParams) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint64(b, 1, uint64(m.EntrySize))
	b = appendUint64(b, 2, uint64(m.StripeWidth))
	b = appendUint64(b, 3, uint64(m.EntriesPerObject))
	return b, nil
}

func (m *StripeParams) Unmarshal(b []byte) error {
	*m = StripeParams{}
	var seen fieldSet
	err := consumeFields("StripeParams", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeUint32(typ, b, &m.EntrySize)
		case 2:
			seen.set(num)
			return consumeUint32(typ, b, &m.StripeWidth)
		case 3:
			seen.set(num)
			return consumeUint32(typ, b, &m.EntriesPerObject)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("StripeParams", 1, 2, 3)
}

// InitOp is the init request registering the stripe layout of an object.
type InitOp struct {
	Params   *StripeParams
	ObjectID uint64
}

func (m *InitOp) Marshal() ([]byte, error) {
	if m.Params == nil {
		return nil, decodeError("InitOp", "nil params")
	}
	b, err := appendMessage(nil, 1, m.Params)
	if err != nil {
		return nil, err
	}
	b = appendUint64(b, 2, m.ObjectID)
	return b, nil
}

func (m *InitOp) Unmarshal(b []byte) error {
	*m = InitOp{}
	var seen fieldSet
	err := consumeFields("InitOp", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			m.Params = &StripeParams{}
			return consumeMessage(typ, b, m.Params)
		case 2:
			seen.set(num)
			return consumeUint64(typ, b, &m.ObjectID)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("InitOp", 1, 2)
}

// ObjectMeta is the stripe layout metadata kept with every striped object.
type ObjectMeta struct {
	Params   *StripeParams
	ObjectID uint64
}

func (m *ObjectMeta) Marshal() ([]byte, error) {
	if m.Params == nil {
		return nil, decodeError("ObjectMeta", "nil params")
	}
	b, err := appendMessage(nil, 1, m.Params)
	if err != nil {
		return nil, err
	}
	b = appendUint64(b, 2, m.ObjectID)
	return b, nil
}

func (m *ObjectMeta) Unmarshal(b []byte) error {
	*m = ObjectMeta{}
	var seen fieldSet
	err := consumeFields("ObjectMeta", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			m.Params = &StripeParams{}
			return consumeMessage(typ, b, m.Params)
		case 2:
			seen.set(num)
			return consumeUint64(typ, b, &m.ObjectID)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("ObjectMeta", 1, 2)
}

// LogEntry is the omap embedded index entry.
type LogEntry struct {
	Flags uint32
	Data  []byte
}

func (m *LogEntry) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint64(b, 1, uint64(m.Flags))
	b = appendBytes(b, 2, m.Data)
	return b, nil
}

func (m *LogEntry) Unmarshal(b []byte) error {
	*m = LogEntry{}
	var seen fieldSet
	err := consumeFields("LogEntry", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeUint32(typ, b, &m.Flags)
		case 2:
			seen.set(num)
			return consumeBytes(typ, b, &m.Data)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("LogEntry", 1, 2)
}

// IndexEntry is the hybrid index entry pointing into the byte stream.
type IndexEntry struct {
	Flags  uint32
	Offset uint64
	Length uint64
}

func (m *IndexEntry) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint64(b, 1, uint64(m.Flags))
	b = appendUint64(b, 2, m.Offset)
	b = appendUint64(b, 3, m.Length)
	return b, nil
}

func (m *IndexEntry) Unmarshal(b []byte) error {
	*m = IndexEntry{}
	var seen fieldSet
	err := consumeFields("IndexEntry", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeUint32(typ, b, &m.Flags)
		case 2:
			seen.set(num)
			return consumeUint64(typ, b, &m.Offset)
		case 3:
			seen.set(num)
			return consumeUint64(typ, b, &m.Length)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("IndexEntry", 1, 2, 3)
}

// AppendOp is the zlog_bench append request.
type AppendOp struct {
	Epoch    uint64
	Position uint64
	Data     []byte
}

func (m *AppendOp) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint64(b, 1, m.Epoch)
	b = appendUint64(b, 2, m.Position)
	b = appendBytes(b, 3, m.Data)
	return b, nil
}

func (m *AppendOp) Unmarshal(b []byte) error {
	*m = AppendOp{}
	var seen fieldSet
	err := consumeFields("AppendOp", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeUint64(typ, b, &m.Epoch)
		case 2:
			seen.set(num)
			return consumeUint64(typ, b, &m.Position)
		case 3:
			seen.set(num)
			return consumeBytes(typ, b, &m.Data)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("AppendOp", 1, 2, 3)
}

// ExecRequest names one object class method call and its input.
type ExecRequest struct {
	Oid    string
	Class  string
	Method string
	Input  []byte
}

func (m *ExecRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Oid)
	b = appendString(b, 2, m.Class)
	b = appendString(b, 3, m.Method)
	b = appendBytes(b, 4, m.Input)
	return b, nil
}

func (m *ExecRequest) Unmarshal(b []byte) error {
	*m = ExecRequest{}
	var seen fieldSet
	err := consumeFields("ExecRequest", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeString(typ, b, &m.Oid)
		case 2:
			seen.set(num)
			return consumeString(typ, b, &m.Class)
		case 3:
			seen.set(num)
			return consumeString(typ, b, &m.Method)
		case 4:
			seen.set(num)
			return consumeBytes(typ, b, &m.Input)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("ExecRequest", 1, 2, 3, 4)
}

// ProbeOp drives the phydesign probe method. Ops run in order against one
// object, Position and Data feed the index and append probes.
type ProbeOp struct {
	Ops      []uint32
	Position uint64
	Data     []byte
}

func (m *ProbeOp) Marshal() ([]byte, error) {
	var b []byte
	for _, op := range m.Ops {
		b = appendUint64(b, 1, uint64(op))
	}
	b = appendUint64(b, 2, m.Position)
	b = appendBytes(b, 3, m.Data)
	return b, nil
}

func (m *ProbeOp) Unmarshal(b []byte) error {
	*m = ProbeOp{}
	var seen fieldSet
	err := consumeFields("ProbeOp", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			var op uint32
			n, err := consumeUint32(typ, b, &op)
			if err != nil {
				return 0, err
			}
			m.Ops = append(m.Ops, op)
			return n, nil
		case 2:
			seen.set(num)
			return consumeUint64(typ, b, &m.Position)
		case 3:
			seen.set(num)
			return consumeBytes(typ, b, &m.Data)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("ProbeOp", 2, 3)
}

// ExecReply carries the outcome of one method call. Message is optional.
type ExecReply struct {
	Code    int32
	Message string
	Output  []byte
}

func (m *ExecReply) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt32(b, 1, m.Code)
	if m.Message != "" {
		b = appendString(b, 2, m.Message)
	}
	b = appendBytes(b, 3, m.Output)
	return b, nil
}

func (m *ExecReply) Unmarshal(b []byte) error {
	*m = ExecReply{}
	var seen fieldSet
	err := consumeFields("ExecReply", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			seen.set(num)
			return consumeInt32(typ, b, &m.Code)
		case 2:
			return consumeString(typ, b, &m.Message)
		case 3:
			seen.set(num)
			return consumeBytes(typ, b, &m.Output)
		}
		return -1, nil
	})
	if err != nil {
		return err
	}
	return seen.require("ExecReply", 1, 3)
}
