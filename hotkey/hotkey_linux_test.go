//go:build linux

package hotkey

import (
	"encoding/binary"
	"testing"
)

func event(typ, code uint16, value int32) []byte {
	b := make([]byte, inputEventSize)
	binary.LittleEndian.PutUint16(b[16:], typ)
	binary.LittleEndian.PutUint16(b[18:], code)
	binary.LittleEndian.PutUint32(b[20:], uint32(value))
	return b
}

func key(code uint16, value int32) []byte { return event(evKey, code, value) }

func concat(evs ...[]byte) []byte {
	var out []byte
	for _, e := range evs {
		out = append(out, e...)
	}
	return out
}

func TestChordScan(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want int
	}{
		{
			name: "full chord",
			buf:  concat(key(keyLCtrl, keyPress), key(keyLShift, keyPress), key(keySpace, keyPress)),
			want: 1,
		},
		{
			name: "right modifiers",
			buf:  concat(key(keyRCtrl, keyPress), key(keyRShift, keyPress), key(keySpace, keyPress)),
			want: 1,
		},
		{
			name: "space without shift",
			buf:  concat(key(keyLCtrl, keyPress), key(keySpace, keyPress)),
			want: 0,
		},
		{
			name: "autorepeat does not retrigger",
			buf: concat(key(keyLCtrl, keyPress), key(keyLShift, keyPress),
				key(keySpace, keyPress), key(keySpace, 2), key(keySpace, 2)),
			want: 1,
		},
		{
			name: "release and press again",
			buf: concat(key(keyLCtrl, keyPress), key(keyLShift, keyPress),
				key(keySpace, keyPress), key(keySpace, keyRelease), key(keySpace, keyPress)),
			want: 2,
		},
		{
			name: "modifier released first",
			buf: concat(key(keyLCtrl, keyPress), key(keyLShift, keyPress),
				key(keyLShift, keyRelease), key(keySpace, keyPress)),
			want: 0,
		},
		{
			name: "non-key events ignored",
			buf: concat(key(keyLCtrl, keyPress), key(keyLShift, keyPress),
				event(0, keySpace, keyPress), key(keySpace, keyPress)),
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c chord
			if got := c.scan(tt.buf); got != tt.want {
				t.Errorf("scan = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChordScanIgnoresPartialEvent(t *testing.T) {
	var c chord
	buf := concat(key(keyLCtrl, keyPress), key(keyLShift, keyPress), key(keySpace, keyPress))
	if got := c.scan(buf[:len(buf)-1]); got != 0 {
		t.Errorf("scan of truncated buffer = %d", got)
	}
}
