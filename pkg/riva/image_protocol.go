package riva

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/cqc-go/webcore/pkg/wsession"
)

// chunkBytes bounds the base64-encoded characters carried per chunk so the
// JSON body stays under the ~64 KB per-fragment limit.
const chunkBytes = 44 * 1024

// SendImage transmits area of the shadow device as an image reference or a
// full chunked transfer,: if the client's cache already holds
// serial for path, only a reference chunk is sent; otherwise the pixel
// data is materialised, encoded, and streamed in bounded chunks.
func (v *Variant) SendImage(s *wsession.Session, path, serial string, area image.Rectangle, asJPEG bool) error {
	if v.cache.UpToDate(path, serial) {
		ref, err:= json.Marshal(ImageChunkMsg{
			Type: MsgImageChunk, Path: path, Serial: serial, First: true, Last: true,
		})
		if err != nil {
			return err
		}
		s.SendText(string(ref))
		return nil
	}

	img:= v.shadow.Snapshot(area)
	var buf bytes.Buffer
	if asJPEG {
		if err:= jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return err
		}
	} else {
		if err:= png.Encode(&buf, img); err != nil {
			return err
		}
	}
	encoded:= base64.StdEncoding.EncodeToString(buf.Bytes())

	for offset:= 0; offset < len(encoded); offset += chunkBytes {
		end:= offset + chunkBytes
		if end > len(encoded) {
			end = len(encoded)
		}
		chunk:= ImageChunkMsg{
			Type: MsgImageChunk,
			Path: path,
			First: offset == 0,
			Last: end == len(encoded),
			Data: encoded[offset:end],
		}
		if offset == 0 {
			chunk.Serial = serial
			chunk.TotalSize = buf.Len()
			chunk.Width = area.Dx()
			chunk.Height = area.Dy()
			chunk.PNG = !asJPEG
		}
		body, err:= json.Marshal(chunk)
		if err != nil {
			return err
		}
		s.SendText(string(body))
	}

	v.cache.MarkSent(path, serial)
	return nil
}
