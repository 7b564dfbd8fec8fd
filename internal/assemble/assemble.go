package assemble

import (
	"errors"
	"fmt"

	"tosho/internal/library"
	"tosho/internal/sources"
)

// ErrAssembly marks a chapter whose pages could not be turned into a
// document. The chapter is not recorded and will be retried on a later run.
var ErrAssembly = errors.New("chapter assembly failed")

// Chapter is the input to an Assembler.
type Chapter struct {
	TitleName string
	TitleSlug string
	Ordinal   float64
	Pages     []sources.Page
}

// Assembler writes a chapter document to disk.
type Assembler interface {
	// Format is the file extension without the dot.
	Format() string
	// Assemble writes the document to outputPath.
	Assemble(chapter Chapter, outputPath string) error
}

// New returns the assembler for a configured format.
func New(format string) (Assembler, error) {
	switch format {
	case "pdf":
		return &PDFAssembler{}, nil
	case "epub":
		return &EPUBAssembler{}, nil
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
}

// OutputName is the canonical document filename for a chapter.
func OutputName(titleSlug string, ordinal float64, format string) string {
	return fmt.Sprintf("%s-%s.%s", titleSlug, library.PaddedOrdinal(ordinal), format)
}

func (c Chapter) validate() error {
	if len(c.Pages) == 0 {
		return fmt.Errorf("%w: no pages for %s chapter %s", ErrAssembly, c.TitleSlug, library.FormatOrdinal(c.Ordinal))
	}
	return nil
}
