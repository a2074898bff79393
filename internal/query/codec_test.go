package query

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/autojoin/internal/models"
)

func TestRequestBytes(t *testing.T) {
	want := []byte{
		0xFF, 0xFF, 0xFF, 0xFF, 0x54, 0x53, 0x6F, 0x75, 0x72, 0x63, 0x65, 0x20, 0x45,
		0x6E, 0x67, 0x69, 0x6E, 0x65, 0x20, 0x51, 0x75, 0x65, 0x72, 0x79, 0x00,
	}

	assert.Len(t, Request, 25)
	assert.Equal(t, want, Request)
}

func TestDecodeKnownBuffer(t *testing.T) {
	buf := []byte{0x00, 0x01, 'A', 0, 'M', 0, 'F', 0, 'G', 0, 0x05, 0x00, 10, 16, 2}

	info, err := Decode(buf)
	require.NoError(t, err)

	assert.Equal(t, models.ServerInfo{
		Header:     0,
		Protocol:   1,
		Name:       "A",
		Map:        "M",
		Folder:     "F",
		Game:       "G",
		ID:         5,
		Players:    10,
		MaxPlayers: 16,
		Bots:       2,
	}, *info)
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	long := strings.Repeat("x", 1024)

	tests := []struct {
		name string
		info models.ServerInfo
	}{
		{"empty strings", models.ServerInfo{}},
		{"typical", models.ServerInfo{
			Header: 'I', Protocol: 17, Name: "FragShack FFA #1", Map: "aim_map",
			Folder: "csgo", Game: "Counter-Strike: Global Offensive", ID: 730,
			Players: 15, MaxPlayers: 20, Bots: 5,
		}},
		{"max numeric values", models.ServerInfo{
			Header: 0xFF, Protocol: 0xFF, ID: 0xFFFF, Players: 0xFF, MaxPlayers: 0xFF, Bots: 0xFF,
		}},
		{"long strings", models.ServerInfo{Name: long, Map: long, Folder: long, Game: long}},
		{"unicode", models.ServerInfo{Name: "Сервер ☢", Map: "de_dust2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Decode(Encode(tt.info))
			require.NoError(t, err)
			assert.Equal(t, tt.info, *info)
		})
	}
}

func TestDecodeTruncated(t *testing.T) {
	full := Encode(models.ServerInfo{
		Header: 'I', Protocol: 17, Name: "name", Map: "map", Folder: "folder", Game: "game",
		ID: 730, Players: 3, MaxPlayers: 10, Bots: 1,
	})

	// every strict prefix must fail, including the empty buffer
	for n := 0; n < len(full); n++ {
		info, err := Decode(full[:n])
		assert.Nil(t, info, "prefix %d", n)
		require.Error(t, err, "prefix %d", n)
		assert.True(t, errors.Is(err, ErrMalformedResponse), "prefix %d: %v", n, err)
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "prefix %d: %v", n, err)
	}
}

func TestDecodeMissingTerminator(t *testing.T) {
	buf := []byte{'I', 17, 'n', 'a', 'm', 'e'}

	_, err := Decode(buf)
	require.ErrorIs(t, err, ErrMalformedResponse)
	assert.Contains(t, err.Error(), "name")
}

func TestDecodeInvalidUTF8IsLossy(t *testing.T) {
	buf := []byte{'I', 17, 'o', 0xFF, 'k', 0, 0, 0, 0, 0x01, 0x00, 1, 2, 0}

	info, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, "o�k", info.Name)
	assert.Equal(t, byte(2), info.MaxPlayers)
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	buf := append(Encode(models.ServerInfo{Name: "x", Players: 4}), 'd', 'l', 0x00)

	info, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, "x", info.Name)
	assert.Equal(t, byte(4), info.Players)
}

func TestTrimSimplePrefix(t *testing.T) {
	body := Encode(models.ServerInfo{Header: 'I', Name: "srv"})

	assert.Equal(t, body, trimSimplePrefix(append(bytes.Clone(simplePrefix), body...)))
	assert.Equal(t, body, trimSimplePrefix(body))
}
