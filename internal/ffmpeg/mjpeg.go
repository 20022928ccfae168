package ffmpeg

import "bytes"

// JPEG markers delimiting frames in an MJPEG byte stream.
var (
	jpegSOI = []byte{0xFF, 0xD8} // Start Of Image
	jpegEOI = []byte{0xFF, 0xD9} // End Of Image
)

// MaxFrameSize bounds one buffered JPEG frame.
const MaxFrameSize = 16 << 20

// ScanJPEG is a bufio.SplitFunc yielding complete JPEG images from the
// MJPEG stream ffmpeg writes to a pipe. Bytes outside SOI..EOI and a
// truncated trailing frame are dropped.
func ScanJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		if atEOF || len(data) == 0 {
			return len(data), nil, nil
		}
		// Keep a trailing 0xFF that may begin the next marker.
		return len(data) - 1, nil, nil
	}

	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}

	stop := start + len(jpegSOI) + end + len(jpegEOI)
	return stop, data[start:stop], nil
}
