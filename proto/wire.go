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
	"fmt"

	apierrors "github.com/cubefs/zlog/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// fieldFunc consumes the value of field num from b and returns the number
// of bytes used, or -1 to have the field skipped as unknown.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// fieldSet records which field numbers were seen while decoding.
type fieldSet uint64

func (s *fieldSet) set(num protowire.Number) {
	*s |= 1 << uint(num)
}

func (s fieldSet) require(record string, nums ...protowire.Number) error {
	for _, num := range nums {
		if s&(1<<uint(num)) == 0 {
			return decodeError(record, fmt.Sprintf("missing required field %d", num))
		}
	}
	return nil
}

func decodeError(record, reason string) error {
	return &apierrors.Error{
		Code: apierrors.CodeInvalidArgument,
		Msg:  fmt.Sprintf("decode %s: %s", record, reason),
	}
}

func consumeFields(record string, b []byte, fn fieldFunc) error {
	if len(b) == 0 {
		return decodeError(record, "empty input")
	}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return decodeError(record, protowire.ParseError(n).Error())
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return decodeError(record, err.Error())
		}
		if m < 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return decodeError(record, protowire.ParseError(m).Error())
		}
		b = b[m:]
	}
	return nil
}

func consumeUint64(typ protowire.Type, b []byte, v *uint64) (int, error) {
	if typ != protowire.VarintType {
		return 0, fmt.Errorf("unexpected wire type %d", typ)
	}
	x, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*v = x
	return n, nil
}

func consumeUint32(typ protowire.Type, b []byte, v *uint32) (int, error) {
	var x uint64
	n, err := consumeUint64(typ, b, &x)
	if err != nil {
		return 0, err
	}
	if x > 1<<32-1 {
		return 0, fmt.Errorf("value %d overflows uint32", x)
	}
	*v = uint32(x)
	return n, nil
}

func consumeInt32(typ protowire.Type, b []byte, v *int32) (int, error) {
	var x uint64
	n, err := consumeUint64(typ, b, &x)
	if err != nil {
		return 0, err
	}
	*v = int32(int64(x))
	return n, nil
}

func consumeBool(typ protowire.Type, b []byte, v *bool) (int, error) {
	var x uint64
	n, err := consumeUint64(typ, b, &x)
	if err != nil {
		return 0, err
	}
	*v = x != 0
	return n, nil
}

func consumeBytes(typ protowire.Type, b []byte, v *[]byte) (int, error) {
	if typ != protowire.BytesType {
		return 0, fmt.Errorf("unexpected wire type %d", typ)
	}
	x, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*v = append([]byte{}, x...)
	return n, nil
}

func consumeString(typ protowire.Type, b []byte, v *string) (int, error) {
	var x []byte
	n, err := consumeBytes(typ, b, &x)
	if err != nil {
		return 0, err
	}
	*v = string(x)
	return n, nil
}

func consumeMessage(typ protowire.Type, b []byte, m Message) (int, error) {
	var x []byte
	n, err := consumeBytes(typ, b, &x)
	if err != nil {
		return 0, err
	}
	if err = m.Unmarshal(x); err != nil {
		return 0, err
	}
	return n, nil
}

func appendUint64(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	return appendUint64(b, num, uint64(int64(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendUint64(b, num, protowire.EncodeBool(v))
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendMessage(b []byte, num protowire.Number, m Message) ([]byte, error) {
	raw, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	return appendBytes(b, num, raw), nil
}
