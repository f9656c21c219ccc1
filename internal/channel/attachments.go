package channel

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"transmit/internal/types"
)

// Attachment is the channel-side form of a Resource. Content is copied out
// of the resource stream so the communication never shares storage with
// the dispatch context.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// Reader returns a fresh reader over the attachment content.
func (a Attachment) Reader() io.Reader {
	return bytes.NewReader(a.Content)
}

// MapAttachments converts resources 1:1, in order, into attachments. Each
// resource stream is rewound when seekable, read to the end and closed when
// closable. Cancellation is observed between reads; on any failure no
// attachments are returned.
func MapAttachments(ctx context.Context, resources []*types.Resource) ([]Attachment, error) {
	out := make([]Attachment, 0, len(resources))
	for i, r := range resources {
		if r == nil {
			return nil, types.NewAppError(types.ErrCodeInvalidArgument, fmt.Sprintf("resource %d is nil", i), nil)
		}
		content, err := readResource(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, Attachment{
			Name:        r.Name,
			ContentType: r.ContentType,
			Content:     content,
		})
	}
	return out, nil
}

func readResource(ctx context.Context, r *types.Resource) ([]byte, error) {
	if r.Content == nil {
		return []byte{}, nil
	}
	if c, ok := r.Content.(io.Closer); ok {
		defer c.Close()
	}
	if s, ok := r.Content.(io.Seeker); ok {
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind resource %q: %w", r.Name, err)
		}
	}

	data, err := io.ReadAll(&ctxReader{ctx: ctx, r: r.Content})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("read resource %q: %w", r.Name, err)
	}
	return data, nil
}

// ctxReader fails the next Read once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
