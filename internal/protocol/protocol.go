// Package protocol implements the wire format spoken between client and
// server: a 4-byte big-endian length prefix followed by a tagged-union
// body. Every multi-byte field inside the body is little-endian. There
// is no code generation step here (the original used FlatBuffers); this
// is a hand-rolled binary codec over encoding/binary, in the same style
// a custom game-state protocol is written elsewhere in this corpus.
package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"arena-server/internal/geom"
)

// MaxFrameSize is the largest body a single frame may carry, in either
// direction. A header claiming more is a protocol violation.
const MaxFrameSize = 16384

// ErrFrameTooLarge is returned by ReadFrame when the claimed body length
// exceeds MaxFrameSize. ReadFrame skips the oversized body first, so the
// reader is left at the next frame boundary.
var ErrFrameTooLarge = errors.New("protocol: frame exceeds max size")

// MsgType tags the body of a frame.
type MsgType uint8

const (
	MsgLogin MsgType = iota
	MsgDirection
	MsgExit
	MsgWelcome
	MsgError
	MsgField
)

// Login is sent once by a client to authenticate and select a field.
type Login struct {
	Login    string
	Password string
	Field    int32
	Level    int32
}

// Direction conveys a player's latest steering intent for one snake.
type Direction struct {
	SnakeID int32
	X, Y    float32
	Boost   bool
	Split   bool
}

// Exit asks the server to close the connection cleanly.
type Exit struct{}

// Welcome is the server's reply to a successful Login.
type Welcome struct {
	PlayerID int32
	K10      float32
}

// Error carries a human-readable failure description; the connection
// stays open and keeps reading after it is sent.
type Error struct {
	Description string
}

// SnakeView is the visibility-filtered view of one snake sent as part of
// a Field message.
type SnakeView struct {
	PlayerID, SnakeID int32
	R                 float32
	Skeleton          []geom.Point
	HeadVisible       bool
	Boost             bool
}

// FoodView is one food pellet as sent to a client.
type FoodView struct {
	P geom.Point
	W float32
}

// Border is an optional arena boundary segment. No component in this
// server currently produces borders; the field exists so the wire
// format has room for one without a breaking change.
type Border struct {
	A, B geom.Point
}

// Field is the periodic snapshot sent to a client for one of its owned
// snakes.
type Field struct {
	SnakeID int32
	W       float32
	Time    float32
	Snakes  []SnakeView
	Foods   []FoodView
	Borders []Border
}

// WriteFrame writes the 4-byte big-endian length prefix followed by
// body.
func WriteFrame(w io.Writer, body []byte) error {
	if len(body) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(body)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// ReadFrame reads one length-prefixed frame from r.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrameSize {
		if _, err := r.Discard(int(n)); err != nil {
			return nil, err
		}
		return nil, ErrFrameTooLarge
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

type byteWriter struct {
	buf []byte
}

func (w *byteWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *byteWriter) bool(v bool)  { if v { w.u8(1) } else { w.u8(0) } }
func (w *byteWriter) i32(v int32)  { w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v)) }
func (w *byteWriter) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *byteWriter) f32(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}
func (w *byteWriter) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}
func (w *byteWriter) point(p geom.Point) { w.f32(p.X); w.f32(p.Y) }

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return errors.New("protocol: truncated message body")
	}
	return nil
}

func (r *byteReader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) boolean() (bool, error) {
	v, err := r.u8()
	return v != 0, err
}

func (r *byteReader) i32() (int32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v, nil
}

func (r *byteReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) f32() (float32, error) {
	v, err := r.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *byteReader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *byteReader) point() (geom.Point, error) {
	x, err := r.f32()
	if err != nil {
		return geom.Point{}, err
	}
	y, err := r.f32()
	if err != nil {
		return geom.Point{}, err
	}
	return geom.Point{X: x, Y: y}, nil
}

// Encode serializes msg into a frame body (without the length prefix).
func Encode(msg any) ([]byte, error) {
	w := &byteWriter{}
	switch m := msg.(type) {
	case Login:
		w.u8(uint8(MsgLogin))
		w.str(m.Login)
		w.str(m.Password)
		w.i32(m.Field)
		w.i32(m.Level)
	case Direction:
		w.u8(uint8(MsgDirection))
		w.i32(m.SnakeID)
		w.f32(m.X)
		w.f32(m.Y)
		w.bool(m.Boost)
		w.bool(m.Split)
	case Exit:
		w.u8(uint8(MsgExit))
	case Welcome:
		w.u8(uint8(MsgWelcome))
		w.i32(m.PlayerID)
		w.f32(m.K10)
	case Error:
		w.u8(uint8(MsgError))
		w.str(m.Description)
	case Field:
		w.u8(uint8(MsgField))
		w.i32(m.SnakeID)
		w.f32(m.W)
		w.f32(m.Time)
		w.u32(uint32(len(m.Snakes)))
		for _, s := range m.Snakes {
			w.i32(s.PlayerID)
			w.i32(s.SnakeID)
			w.f32(s.R)
			w.bool(s.HeadVisible)
			w.bool(s.Boost)
			w.u32(uint32(len(s.Skeleton)))
			for _, p := range s.Skeleton {
				w.point(p)
			}
		}
		w.u32(uint32(len(m.Foods)))
		for _, f := range m.Foods {
			w.point(f.P)
			w.f32(f.W)
		}
		w.bool(len(m.Borders) > 0)
		if len(m.Borders) > 0 {
			w.u32(uint32(len(m.Borders)))
			for _, b := range m.Borders {
				w.point(b.A)
				w.point(b.B)
			}
		}
	default:
		return nil, fmt.Errorf("protocol: unknown message type %T", msg)
	}
	return w.buf, nil
}

// Decode parses a frame body into its concrete message type.
func Decode(body []byte) (any, error) {
	if len(body) == 0 {
		return nil, errors.New("protocol: empty message body")
	}
	r := &byteReader{buf: body}
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch MsgType(tag) {
	case MsgLogin:
		login, err := r.str()
		if err != nil {
			return nil, err
		}
		password, err := r.str()
		if err != nil {
			return nil, err
		}
		field, err := r.i32()
		if err != nil {
			return nil, err
		}
		level, err := r.i32()
		if err != nil {
			return nil, err
		}
		return Login{Login: login, Password: password, Field: field, Level: level}, nil
	case MsgDirection:
		snakeID, err := r.i32()
		if err != nil {
			return nil, err
		}
		x, err := r.f32()
		if err != nil {
			return nil, err
		}
		y, err := r.f32()
		if err != nil {
			return nil, err
		}
		boost, err := r.boolean()
		if err != nil {
			return nil, err
		}
		split, err := r.boolean()
		if err != nil {
			return nil, err
		}
		return Direction{SnakeID: snakeID, X: x, Y: y, Boost: boost, Split: split}, nil
	case MsgExit:
		return Exit{}, nil
	case MsgWelcome:
		playerID, err := r.i32()
		if err != nil {
			return nil, err
		}
		k10, err := r.f32()
		if err != nil {
			return nil, err
		}
		return Welcome{PlayerID: playerID, K10: k10}, nil
	case MsgError:
		desc, err := r.str()
		if err != nil {
			return nil, err
		}
		return Error{Description: desc}, nil
	case MsgField:
		return decodeField(r)
	default:
		return nil, fmt.Errorf("protocol: unknown message tag %d", tag)
	}
}

func decodeField(r *byteReader) (Field, error) {
	var f Field
	var err error
	if f.SnakeID, err = r.i32(); err != nil {
		return f, err
	}
	if f.W, err = r.f32(); err != nil {
		return f, err
	}
	if f.Time, err = r.f32(); err != nil {
		return f, err
	}
	snakeCount, err := r.u32()
	if err != nil {
		return f, err
	}
	f.Snakes = make([]SnakeView, snakeCount)
	for i := range f.Snakes {
		s := &f.Snakes[i]
		if s.PlayerID, err = r.i32(); err != nil {
			return f, err
		}
		if s.SnakeID, err = r.i32(); err != nil {
			return f, err
		}
		if s.R, err = r.f32(); err != nil {
			return f, err
		}
		if s.HeadVisible, err = r.boolean(); err != nil {
			return f, err
		}
		if s.Boost, err = r.boolean(); err != nil {
			return f, err
		}
		segCount, err := r.u32()
		if err != nil {
			return f, err
		}
		s.Skeleton = make([]geom.Point, segCount)
		for j := range s.Skeleton {
			if s.Skeleton[j], err = r.point(); err != nil {
				return f, err
			}
		}
	}
	foodCount, err := r.u32()
	if err != nil {
		return f, err
	}
	f.Foods = make([]FoodView, foodCount)
	for i := range f.Foods {
		if f.Foods[i].P, err = r.point(); err != nil {
			return f, err
		}
		if f.Foods[i].W, err = r.f32(); err != nil {
			return f, err
		}
	}
	hasBorders, err := r.boolean()
	if err != nil {
		return f, err
	}
	if hasBorders {
		borderCount, err := r.u32()
		if err != nil {
			return f, err
		}
		f.Borders = make([]Border, borderCount)
		for i := range f.Borders {
			if f.Borders[i].A, err = r.point(); err != nil {
				return f, err
			}
			if f.Borders[i].B, err = r.point(); err != nil {
				return f, err
			}
		}
	}
	return f, nil
}
