package assemble

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"tosho/internal/library"
)

// PDFAssembler writes one image per PDF page, sized to the image's aspect
// ratio.
type PDFAssembler struct{}

// Format implements Assembler.
func (a *PDFAssembler) Format() string { return "pdf" }

// Assemble implements Assembler.
func (a *PDFAssembler) Assemble(chapter Chapter, outputPath string) error {
	if err := chapter.validate(); err != nil {
		return err
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: 595.28, Ht: 841.89}, // A4, replaced per page
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(fmt.Sprintf("%s %s", chapter.TitleName, library.FormatOrdinal(chapter.Ordinal)), true)

	for i, page := range chapter.Pages {
		img, err := normalizePage(page)
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
		if img.width <= 0 || img.height <= 0 {
			return fmt.Errorf("%w: page %d has no dimensions", ErrAssembly, i+1)
		}

		name := fmt.Sprintf("page-%d", i+1)
		opts := fpdf.ImageOptions{ImageType: strings.ToUpper(img.format)}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.data))
		if pdf.Err() {
			return fmt.Errorf("%w: register page %d: %v", ErrAssembly, i+1, pdf.Error())
		}

		width := float64(img.width)
		height := float64(img.height)
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})
		pdf.ImageOptions(name, 0, 0, width, height, false, opts, 0, "")
		if pdf.Err() {
			return fmt.Errorf("%w: place page %d: %v", ErrAssembly, i+1, pdf.Error())
		}
	}

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrAssembly, outputPath, err)
	}
	return nil
}
