package wire

import "bytes"

// Framer accumulates raw byte chunks from the interpreter's stdout and
// splits them into complete newline-terminated records.
//
// A record delayed mid-line is buffered until a later chunk supplies the
// terminating newline, so chunk boundaries never cause a false dispatch.
// Lines that do not open a JSON object are protocol noise and are dropped
// here; lines that open an object but fail to parse are the codec's
// problem, not the framer's.
type Framer struct {
	buf []byte
}

// Push appends a chunk to the framer's buffer and returns every complete
// record it now holds. The buffer retains only the bytes following the
// last consumed newline.
//
// Returned slices are copies and remain valid after subsequent pushes.
func (f *Framer) Push(chunk []byte) [][]byte {
	f.buf = append(f.buf, chunk...)

	var records [][]byte

	for {
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			break
		}

		line := f.buf[:idx]
		f.buf = f.buf[idx+1:]

		line = bytes.TrimRight(line, "\r")
		line = bytes.TrimLeft(line, " \t")

		// Non-object lines are stray output, not protocol records.
		if len(line) == 0 || line[0] != '{' {
			continue
		}

		record := make([]byte, len(line))
		copy(record, line)
		records = append(records, record)
	}

	return records
}

// Buffered reports how many bytes are held waiting for a newline.
func (f *Framer) Buffered() int {
	return len(f.buf)
}
