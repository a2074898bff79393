// Package query implements the Source Engine Query (A2S_INFO) request and the decoder for its reply.
package query

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/woozymasta/autojoin/internal/models"
)

// ErrMalformedResponse is returned when a reply cannot be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// Request is the A2S_INFO query datagram: "\xFF\xFF\xFF\xFFTSource Engine Query\x00".
var Request = []byte{
	0xFF, 0xFF, 0xFF, 0xFF,
	'T', 'S', 'o', 'u', 'r', 'c', 'e', ' ', 'E', 'n', 'g', 'i', 'n', 'e', ' ',
	'Q', 'u', 'e', 'r', 'y', 0x00,
}

// simplePrefix marks a reply that fits in a single datagram.
var simplePrefix = []byte{0xFF, 0xFF, 0xFF, 0xFF}

// reader is a forward-only cursor over a reply buffer.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) truncated(field string) error {
	return fmt.Errorf("%w: %s at offset %d: %w", ErrMalformedResponse, field, r.pos, io.ErrUnexpectedEOF)
}

func (r *reader) u8(field string) (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, r.truncated(field)
	}
	b := r.buf[r.pos]
	r.pos++

	return b, nil
}

func (r *reader) u16(field string) (uint16, error) {
	if len(r.buf)-r.pos < 2 {
		return 0, r.truncated(field)
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2

	return v, nil
}

// cstring reads a NUL-terminated string. Invalid UTF-8 is replaced, never rejected.
func (r *reader) cstring(field string) (string, error) {
	end := bytes.IndexByte(r.buf[r.pos:], 0x00)
	if end < 0 {
		r.pos = len(r.buf)
		return "", r.truncated(field)
	}
	s := strings.ToValidUTF8(string(r.buf[r.pos:r.pos+end]), "�")
	r.pos += end + 1

	return s, nil
}

// Decode parses an A2S_INFO reply body (without the single-packet prefix).
// Bytes after the bot count are ignored.
func Decode(data []byte) (*models.ServerInfo, error) {
	r := &reader{buf: data}
	info := &models.ServerInfo{}

	var err error
	if info.Header, err = r.u8("header"); err != nil {
		return nil, err
	}
	if info.Protocol, err = r.u8("protocol"); err != nil {
		return nil, err
	}
	if info.Name, err = r.cstring("name"); err != nil {
		return nil, err
	}
	if info.Map, err = r.cstring("map"); err != nil {
		return nil, err
	}
	if info.Folder, err = r.cstring("folder"); err != nil {
		return nil, err
	}
	if info.Game, err = r.cstring("game"); err != nil {
		return nil, err
	}
	if info.ID, err = r.u16("id"); err != nil {
		return nil, err
	}
	if info.Players, err = r.u8("players"); err != nil {
		return nil, err
	}
	if info.MaxPlayers, err = r.u8("max_players"); err != nil {
		return nil, err
	}
	if info.Bots, err = r.u8("bots"); err != nil {
		return nil, err
	}

	return info, nil
}

// Encode serializes info in the layout Decode expects.
// String fields must not contain NUL bytes.
func Encode(info models.ServerInfo) []byte {
	size := 2 + len(info.Name) + len(info.Map) + len(info.Folder) + len(info.Game) + 4 + 2 + 3
	buf := make([]byte, 0, size)

	buf = append(buf, info.Header, info.Protocol)
	for _, s := range []string{info.Name, info.Map, info.Folder, info.Game} {
		buf = append(buf, s...)
		buf = append(buf, 0x00)
	}
	buf = binary.LittleEndian.AppendUint16(buf, info.ID)

	return append(buf, info.Players, info.MaxPlayers, info.Bots)
}

// trimSimplePrefix strips the 0xFFFFFFFF single-packet marker if present.
func trimSimplePrefix(data []byte) []byte {
	return bytes.TrimPrefix(data, simplePrefix)
}
