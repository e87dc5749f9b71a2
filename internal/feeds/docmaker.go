package feeds

import (
	"fmt"
	"time"

	"github.com/idxbench/idxbench/internal/runcfg"
)

func init() {
	Register(KindDocMaker, "basic", func() Producer { return &BasicDocMaker{} })
}

// BasicDocMaker maps raw content 1:1 onto indexable documents. It is the
// default doc maker.
type BasicDocMaker struct {
	src ContentSource
}

func (m *BasicDocMaker) SetSource(src ContentSource) { m.src = src }

func (m *BasicDocMaker) Configure(*runcfg.Config) error {
	if m.src == nil {
		return fmt.Errorf("doc maker has no content source")
	}
	return nil
}

// ResetInputs is a no-op: the maker is stateless beyond its source, and the
// run context resets the source itself.
func (m *BasicDocMaker) ResetInputs() {}

func (m *BasicDocMaker) MakeDocument() (*Document, error) {
	c, err := m.src.Next()
	if err != nil {
		return nil, err
	}
	return &Document{
		ID:      c.ID,
		Title:   c.Title,
		Body:    c.Body,
		Date:    c.Date.Format(time.RFC3339),
		Ordinal: c.Ordinal,
	}, nil
}
