package signalbus

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/liveforge/dmcap/internal/cryptoenv"
)

// maxFrameSize bounds an inbound frame to guard against a corrupt or
// malicious length prefix triggering an enormous allocation.
const maxFrameSize = 16 << 20 // 16 MiB

// writeFrame encrypts payload under password and writes it as a
// 4-byte-big-endian-length-prefixed frame to w.
func writeFrame(w io.Writer, password string, payload []byte) error {
	envelope, err := cryptoenv.Seal(password, payload)
	if err != nil {
		return fmt.Errorf("signalbus: seal frame: %w", err)
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(envelope)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("signalbus: write frame length: %w", err)
	}
	if _, err := w.Write(envelope); err != nil {
		return fmt.Errorf("signalbus: write frame body: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed frame from r and decrypts it under
// password. Returns io.EOF if the connection closed before any bytes were
// read (a graceful "no message sent" close).
func readFrame(r io.Reader, password string) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("signalbus: truncated frame length")
		}
		return nil, err
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("signalbus: frame of %d bytes exceeds limit", n)
	}

	envelope := make([]byte, n)
	if _, err := io.ReadFull(r, envelope); err != nil {
		return nil, fmt.Errorf("signalbus: read frame body: %w", err)
	}

	payload, err := cryptoenv.Open(password, envelope)
	if err != nil {
		return nil, fmt.Errorf("signalbus: decrypt frame: %w", err)
	}
	return payload, nil
}
