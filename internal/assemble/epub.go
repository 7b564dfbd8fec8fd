package assemble

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmaupin/go-epub"

	"tosho/internal/library"
)

// EPUBAssembler wraps chapter pages into an EPUB for e-readers.
type EPUBAssembler struct{}

// Format implements Assembler.
func (a *EPUBAssembler) Format() string { return "epub" }

// Assemble implements Assembler.
func (a *EPUBAssembler) Assemble(chapter Chapter, outputPath string) error {
	if err := chapter.validate(); err != nil {
		return err
	}

	label := library.FormatOrdinal(chapter.Ordinal)
	book := epub.NewEpub(fmt.Sprintf("%s %s", chapter.TitleName, label))

	// go-epub ingests images from paths, so pages go through a scratch dir.
	scratch, err := os.MkdirTemp("", "tosho-epub-")
	if err != nil {
		return fmt.Errorf("%w: scratch dir: %w", ErrAssembly, err)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	for i, page := range chapter.Pages {
		img, err := normalizePage(page)
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}

		fileName := fmt.Sprintf("page-%04d.%s", i+1, img.format)
		scratchPath := filepath.Join(scratch, fileName)
		if err := os.WriteFile(scratchPath, img.data, 0o644); err != nil {
			return fmt.Errorf("%w: stage page %d: %w", ErrAssembly, i+1, err)
		}

		internalPath, err := book.AddImage(scratchPath, fileName)
		if err != nil {
			return fmt.Errorf("%w: add page %d: %w", ErrAssembly, i+1, err)
		}

		body := fmt.Sprintf(`<div style="text-align:center"><img src=%q alt="Page %d"/></div>`, internalPath, i+1)
		sectionTitle := fmt.Sprintf("Page %d", i+1)
		if _, err := book.AddSection(body, sectionTitle, fmt.Sprintf("page-%04d.xhtml", i+1), ""); err != nil {
			return fmt.Errorf("%w: add section %d: %w", ErrAssembly, i+1, err)
		}
	}

	if err := book.Write(outputPath); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrAssembly, outputPath, err)
	}
	return nil
}
