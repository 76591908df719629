// Package serializer formats run batches for the LangSmith multipart
// ingestion endpoint: zstd-compressed multipart/form-data, one part per run
// plus separate parts for inputs and outputs.
package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"

	"github.com/DataDog/zstd"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/model"
)

// Compressor accumulates runs into one compressed multipart body. It is a
// long-lived object: Flush returns the finished body and resets it for the
// next batch. Not safe for concurrent use; the exporter worker serializes
// access.
type Compressor struct {
	boundary string
	zw       io.WriteCloser
	buf      *bytes.Buffer

	raw  int
	runs int
}

func New() *Compressor {
	c := &Compressor{}
	c.reset()
	return c
}

func (c *Compressor) reset() {
	c.boundary = "----LangSmithFormBoundary-" + strconv.FormatUint(rand.Uint64(), 36)
	c.buf = &bytes.Buffer{}
	c.zw = zstd.NewWriter(c.buf)
	c.raw = 0
	c.runs = 0
}

// Add appends one run as post.<id> multipart parts.
func (c *Compressor) Add(r *model.Run) error {
	id := *r.ID
	body := *r
	body.Inputs, body.Outputs = nil, nil
	if err := c.part("post."+id, &body); err != nil {
		return err
	}
	if r.Inputs != nil {
		if err := c.part("post."+id+".inputs", r.Inputs); err != nil {
			return err
		}
	}
	if r.Outputs != nil {
		if err := c.part("post."+id+".outputs", r.Outputs); err != nil {
			return err
		}
	}
	c.runs++
	return nil
}

func (c *Compressor) part(name string, v any) error {
	j, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.raw += len(j)
	header := fmt.Sprintf("--%s\r\nContent-Disposition: form-data; name=%q\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n",
		c.boundary, name, len(j))
	if _, err := c.zw.Write([]byte(header)); err != nil {
		return err
	}
	if _, err := c.zw.Write(j); err != nil {
		return err
	}
	_, err = c.zw.Write([]byte("\r\n"))
	return err
}

// Flush terminates the multipart body, returns the compressed bytes and the
// boundary, and resets the compressor. An empty compressor flushes to nil.
func (c *Compressor) Flush() (data []byte, boundary string, err error) {
	if c.runs == 0 {
		return nil, "", nil
	}
	if _, err = fmt.Fprintf(c.zw, "--%s--\r\n", c.boundary); err == nil {
		err = c.zw.Close()
	}
	if err == nil {
		data = c.buf.Bytes()
		boundary = c.boundary
	}
	c.reset()
	return data, boundary, err
}

// RunCount reports the number of runs added since the last Flush.
func (c *Compressor) RunCount() int { return c.runs }

// Uncompressed reports the raw payload size added since the last Flush.
// zstd is effective enough that buffer limits are applied to this figure,
// not the compressed one.
func (c *Compressor) Uncompressed() int { return c.raw }
